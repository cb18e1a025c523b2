package maintenance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes maintenance endpoints.
type Handler struct {
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs the maintenance handler.
func NewHandler(service *Service, guard rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers maintenance routes, all admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAdmin())
	r.Post("/master-reset", h.MasterReset)
}

type resetRequest struct {
	// Confirm must be the literal string "RESET" so the endpoint cannot be
	// hit by accident.
	Confirm string `json:"confirm" validate:"required,eq=RESET"`
}

func (h *Handler) MasterReset(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req resetRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.MasterReset(r.Context(), actor); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
