package inventory

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes raw-material and ledger endpoints.
type Handler struct {
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs the inventory handler.
func NewHandler(service *Service, guard rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAuth())
	r.Get("/materials", h.ListMaterials)
	r.Get("/materials/{id}", h.GetMaterial)
	r.Get("/materials/{id}/movements", h.Movements)
	r.Get("/movements", h.AllMovements)
	r.Get("/low-stock", h.LowStock)
	r.Post("/materials/{id}/issue", h.Issue)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Post("/materials", h.CreateMaterial)
		r.Put("/materials/{id}", h.UpdateMaterial)
		r.Post("/materials/{id}/adjust", h.Adjust)
	})
}

type materialRequest struct {
	Code     string  `json:"code" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Unit     string  `json:"unit" validate:"required"`
	MinStock float64 `json:"min_stock" validate:"gte=0"`
	IsActive bool    `json:"is_active"`
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	material, err := h.service.CreateMaterial(r.Context(), RawMaterial{
		Code:     req.Code,
		Name:     req.Name,
		Unit:     req.Unit,
		MinStock: req.MinStock,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, material)
}

func (h *Handler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	material, err := h.service.GetMaterial(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, material)
}

func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.service.ListMaterials(r.Context(), activeOnly)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req materialRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	material, err := h.service.UpdateMaterial(r.Context(), RawMaterial{
		ID:       id,
		Name:     req.Name,
		Unit:     req.Unit,
		MinStock: req.MinStock,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, material)
}

type issueRequest struct {
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req issueRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	movement, err := h.service.Issue(r.Context(), actor, id, req.Quantity, req.Reference, req.Notes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

type adjustRequest struct {
	Delta float64 `json:"delta" validate:"required"`
	Notes string  `json:"notes" validate:"required"`
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req adjustRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	movement, err := h.service.Adjust(r.Context(), actor, id, req.Delta, req.Notes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondMovements(w, r, id)
}

func (h *Handler) AllMovements(w http.ResponseWriter, r *http.Request) {
	h.respondMovements(w, r, 0)
}

type movementsResponse struct {
	Data       []Movement        `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) respondMovements(w http.ResponseWriter, r *http.Request, rawMaterialID int64) {
	page, err := queryInt(r, "page")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	list, pagination, err := h.service.Movements(r.Context(), rawMaterialID, page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movementsResponse{Data: list, Pagination: pagination})
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.LowStock(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}
