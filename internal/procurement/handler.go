package procurement

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes procurement endpoints.
type Handler struct {
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs the procurement handler.
func NewHandler(service *Service, guard rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireAuth())
	r.Get("/pos", h.ListPOs)
	r.Post("/pos", h.CreatePO)
	r.Get("/pos/{id}", h.GetPO)
	r.Post("/pos/{id}/receive", h.Receive)
	r.Get("/bills", h.ListBills)
	r.Get("/bills/{id}", h.GetBill)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Post("/bills/{id}/dispatch", h.DispatchBill)
		r.Post("/bills/{id}/pay", h.PayBill)
	})
}

type createItemRequest struct {
	RawMaterialID int64   `json:"raw_material_id" validate:"required,gt=0"`
	Quantity      float64 `json:"quantity" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"gte=0"`
}

type createRequest struct {
	VendorID int64               `json:"vendor_id" validate:"required,gt=0"`
	Notes    string              `json:"notes"`
	Items    []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) CreatePO(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{VendorID: req.VendorID, Notes: req.Notes}
	for _, item := range req.Items {
		input.Items = append(input.Items, CreateItemInput{
			RawMaterialID: item.RawMaterialID,
			Quantity:      item.Quantity,
			Price:         item.Price,
		})
	}
	po, err := h.service.CreatePO(r.Context(), actor, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) ListPOs(w http.ResponseWriter, r *http.Request) {
	var filter POFilter
	if raw := r.URL.Query().Get("vendor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.VendorID = id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = POStatus(raw)
	}
	list, err := h.service.ListPOs(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) GetPO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.GetPO(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

// Receive books goods receipt. The client may pass an Idempotency-Key header
// to make retries safe.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
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
	bill, err := h.service.Receive(r.Context(), actor, id, r.Header.Get("Idempotency-Key"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	var filter BillFilter
	if raw := r.URL.Query().Get("vendor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		filter.VendorID = id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = BillStatus(raw)
	}
	list, err := h.service.ListBills(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.GetBill(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) DispatchBill(w http.ResponseWriter, r *http.Request) {
	h.transitionBill(w, r, BillDispatched)
}

func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	h.transitionBill(w, r, BillPaid)
}

func (h *Handler) transitionBill(w http.ResponseWriter, r *http.Request, to BillStatus) {
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
	bill, err := h.service.TransitionBill(r.Context(), actor, id, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
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
