package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ProductCatalog is the slice of the products service orders depend on.
type ProductCatalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

// Service implements the order lifecycle.
type Service struct {
	repo    Repository
	catalog ProductCatalog
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewService builds the Service.
func NewService(repo Repository, catalog ProductCatalog, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit, logger: logger}
}

// CreateItemInput is one requested product line.
type CreateItemInput struct {
	ProductID         int64
	Quantity          float64
	AvailableQuantity *float64
}

// CreateInput describes a new draft order.
type CreateInput struct {
	StoreID int64
	Notes   string
	Items   []CreateItemInput
}

// Create builds a DRAFT order. Prices are read from the product catalog at
// creation time; line totals and the order total are quantity*price sums.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", httpx.ErrValidation)
	}
	ids := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", httpx.ErrValidation)
		}
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	order := &Order{
		StoreID:   input.StoreID,
		CreatedBy: actor.ID,
		Status:    StatusDraft,
		Notes:     input.Notes,
	}
	for _, item := range input.Items {
		product, ok := catalog[item.ProductID]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("%w: product %d not found or inactive", httpx.ErrValidation, item.ProductID)
		}
		line := OrderItem{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			Price:             product.Price,
			Total:             item.Quantity * product.Price,
			AvailableQuantity: item.AvailableQuantity,
		}
		order.TotalAmount += line.Total
		order.Items = append(order.Items, line)
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "order.create", order.ID, string(order.Status))
	return order, nil
}

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns order headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}

// Transition moves the order to the requested status. Only an admin may
// approve; every other legal move is open to any authenticated actor.
func (s *Service) Transition(ctx context.Context, actor shared.Actor, id int64, to Status) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, to) {
		return nil, TransitionError(order.Status, to)
	}
	if to == StatusApproved && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin may approve orders", httpx.ErrForbidden)
	}
	if err := s.repo.UpdateStatus(ctx, id, order.Status, to); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "order.transition", id, fmt.Sprintf("%s->%s", order.Status, to))
	return s.repo.Get(ctx, id)
}

// Submit is shorthand for the DRAFT→SUBMITTED move.
func (s *Service) Submit(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.Transition(ctx, actor, id, StatusSubmitted)
}

// Approve is shorthand for the SUBMITTED→APPROVED move.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.Transition(ctx, actor, id, StatusApproved)
}

// Cancel moves the order to CANCELLED from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id int64) (*Order, error) {
	return s.Transition(ctx, actor, id, StatusCancelled)
}

// Delete removes an order. INVOICED orders are never deletable. APPROVED
// orders are deletable by an admin only; earlier states by the creator or an
// admin.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.Status == StatusInvoiced {
		return fmt.Errorf("%w: invoiced orders cannot be deleted", httpx.ErrInvalidTransition)
	}
	if order.Status == StatusApproved {
		if !actor.IsAdmin() {
			return fmt.Errorf("%w: only an admin may delete an approved order", httpx.ErrForbidden)
		}
	} else if order.CreatedBy != actor.ID && !actor.IsAdmin() {
		return fmt.Errorf("%w: only the creator or an admin may delete this order", httpx.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.writeAudit(ctx, actor, "order.delete", id, string(order.Status))
	return nil
}

func (s *Service) writeAudit(ctx context.Context, actor shared.Actor, action string, entityID int64, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     map[string]any{"detail": detail},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
