package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Idempotency is the slice of the idempotency store procurement depends on.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service implements the procurement lifecycle.
type Service struct {
	repo   Repository
	idem   Idempotency
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds the Service.
func NewService(repo Repository, idem Idempotency, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, idem: idem, audit: audit, logger: logger}
}

// CreateItemInput is one requested raw-material line.
type CreateItemInput struct {
	RawMaterialID int64
	Quantity      float64
	Price         float64
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	VendorID int64
	Notes    string
	Items    []CreateItemInput
}

// CreatePO raises a PENDING purchase order on a vendor.
func (s *Service) CreatePO(ctx context.Context, actor shared.Actor, input CreateInput) (*PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: a purchase order needs at least one item", httpx.ErrValidation)
	}
	po := &PurchaseOrder{
		VendorID:  input.VendorID,
		CreatedBy: actor.ID,
		Status:    POPending,
		Notes:     input.Notes,
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", httpx.ErrValidation)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", httpx.ErrValidation)
		}
		line := PurchaseOrderItem{
			RawMaterialID: item.RawMaterialID,
			Quantity:      item.Quantity,
			Price:         item.Price,
			Total:         item.Quantity * item.Price,
		}
		po.TotalAmount += line.Total
		po.Items = append(po.Items, line)
	}
	if err := s.repo.CreatePO(ctx, po); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "po.create", po.ID, po.PONumber)
	return po, nil
}

// GetPO returns one purchase order with items.
func (s *Service) GetPO(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id)
}

// ListPOs returns purchase order headers matching the filter.
func (s *Service) ListPOs(ctx context.Context, filter POFilter) ([]PurchaseOrder, error) {
	return s.repo.ListPOs(ctx, filter)
}

// Receive books the goods receipt for a PENDING purchase order: the PO moves
// to REACHED_OFFICE, every line lands in the inventory ledger as an IN
// movement and a vendor bill is raised for the full PO amount. The
// idempotency key, when supplied, shields against duplicate submissions; the
// status guard catches retries without a key.
func (s *Service) Receive(ctx context.Context, actor shared.Actor, poID int64, idempotencyKey string) (*VendorBill, error) {
	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, "procurement.receive"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("%w: receive already processed", httpx.ErrInvalidTransition)
			}
			return nil, err
		}
	}
	bill, err := s.repo.Receive(ctx, poID, actor.ID)
	if err != nil {
		if idempotencyKey != "" && s.idem != nil {
			if delErr := s.idem.Delete(ctx, idempotencyKey); delErr != nil && s.logger != nil {
				s.logger.Warn("idempotency rollback failed", slog.Any("error", delErr))
			}
		}
		return nil, err
	}
	s.writeAudit(ctx, actor, "po.receive", poID, bill.BillNumber)
	return bill, nil
}

// GetBill returns one vendor bill.
func (s *Service) GetBill(ctx context.Context, id int64) (*VendorBill, error) {
	return s.repo.GetBill(ctx, id)
}

// ListBills returns vendor bills matching the filter.
func (s *Service) ListBills(ctx context.Context, filter BillFilter) ([]VendorBill, error) {
	return s.repo.ListBills(ctx, filter)
}

// TransitionBill moves a vendor bill along PENDING_DISPATCH → DISPATCHED →
// PAID.
func (s *Service) TransitionBill(ctx context.Context, actor shared.Actor, id int64, to BillStatus) (*VendorBill, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionBill(bill.Status, to) {
		return nil, BillTransitionError(bill.Status, to)
	}
	if err := s.repo.UpdateBillStatus(ctx, id, bill.Status, to); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "bill.transition", id, fmt.Sprintf("%s->%s", bill.Status, to))
	return s.repo.GetBill(ctx, id)
}

func (s *Service) writeAudit(ctx context.Context, actor shared.Actor, action string, entityID int64, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "procurement",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     map[string]any{"detail": detail},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
