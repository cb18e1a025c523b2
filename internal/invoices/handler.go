package invoices

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes invoice endpoints.
type Handler struct {
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs the invoices handler.
func NewHandler(service *Service, guard rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAuth())
	r.Get("/", h.List)
	r.Post("/", h.Generate)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/approve", h.Approve)
	r.Delete("/{id}", h.Delete)
}

type generateRequest struct {
	OrderID           int64              `json:"order_id" validate:"required,gt=0"`
	DiscountPercent   *float64           `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	ProductDiscounts  map[string]float64 `json:"product_discounts"`
	DueDate           string             `json:"due_date" validate:"required"`
	UpdateStoreMargin bool               `json:"update_store_margin"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req generateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Error", "due_date must be YYYY-MM-DD")
		return
	}
	input := GenerateInput{
		OrderID:           req.OrderID,
		DiscountPercent:   req.DiscountPercent,
		DueDate:           dueDate,
		UpdateStoreMargin: req.UpdateStoreMargin,
	}
	if len(req.ProductDiscounts) > 0 {
		input.ProductDiscounts = make(map[int64]float64, len(req.ProductDiscounts))
		for raw, pct := range req.ProductDiscounts {
			productID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Error", "product_discounts keys must be product ids")
				return
			}
			input.ProductDiscounts[productID] = pct
		}
	}
	inv, err := h.service.Generate(r.Context(), actor, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	if raw := r.URL.Query().Get("store_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.StoreID = id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = Status(raw)
	}
	filter.Overdue = r.URL.Query().Get("overdue") == "true"
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Approve(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func currentActor(r *http.Request) (shared.Actor, bool) {
	return shared.ActorFromContext(r.Context())
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}
