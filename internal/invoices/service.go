package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/stores"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// OrderReader is the slice of the orders service invoicing depends on.
type OrderReader interface {
	Get(ctx context.Context, id int64) (*orders.Order, error)
}

// StoreReader looks up the billed store for its margin default.
type StoreReader interface {
	Get(ctx context.Context, id int64) (*stores.Store, error)
}

// ProductCatalog supplies GST rates for billed products.
type ProductCatalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

// Service implements invoice generation and lifecycle.
type Service struct {
	repo    Repository
	orders  OrderReader
	stores  StoreReader
	catalog ProductCatalog
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewService builds the Service.
func NewService(repo Repository, orderReader OrderReader, storeReader StoreReader, catalog ProductCatalog, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, orders: orderReader, stores: storeReader, catalog: catalog, audit: audit, logger: logger}
}

// GenerateInput controls invoice generation for one approved order.
type GenerateInput struct {
	OrderID int64
	// DiscountPercent overrides the store margin default for every line when
	// set. Per-product overrides take precedence over both.
	DiscountPercent  *float64
	ProductDiscounts map[int64]float64
	DueDate          time.Time
	// UpdateStoreMargin persists DiscountPercent as the store's new default.
	UpdateStoreMargin bool
}

// Generate builds a DRAFT invoice from an APPROVED order. Line discounts
// resolve per product: explicit product override, else the request-level
// override, else the store margin default. The order flips to INVOICED in the
// same transaction.
func (s *Service) Generate(ctx context.Context, actor shared.Actor, input GenerateInput) (*Invoice, error) {
	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orders.StatusApproved {
		return nil, fmt.Errorf("%w: only approved orders can be invoiced, order is %s", httpx.ErrInvalidTransition, order.Status)
	}
	if _, err := s.repo.GetByOrder(ctx, order.ID); err == nil {
		return nil, fmt.Errorf("%w: order %d already has an invoice", httpx.ErrDuplicate, order.ID)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}

	store, err := s.stores.Get(ctx, order.StoreID)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	defaultDiscount := store.MarginPercent
	if input.DiscountPercent != nil {
		defaultDiscount = *input.DiscountPercent
	}
	if defaultDiscount < 0 || defaultDiscount > 100 {
		return nil, fmt.Errorf("%w: discount_percent must be between 0 and 100", httpx.ErrValidation)
	}

	inv := &Invoice{
		OrderID:         order.ID,
		StoreID:         order.StoreID,
		DiscountPercent: defaultDiscount,
		Status:          StatusDraft,
		DueDate:         input.DueDate,
	}
	results := make([]LineResult, 0, len(order.Items))
	for _, item := range order.Items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d not found", httpx.ErrValidation, item.ProductID)
		}
		discount := defaultDiscount
		if override, ok := input.ProductDiscounts[item.ProductID]; ok {
			if override < 0 || override > 100 {
				return nil, fmt.Errorf("%w: discount for product %d must be between 0 and 100", httpx.ErrValidation, item.ProductID)
			}
			discount = override
		}
		line := ComputeLine(LineInput{
			Quantity:        item.Quantity,
			Price:           item.Price,
			DiscountPercent: discount,
			GSTPercent:      product.GSTPercent,
		})
		results = append(results, line)
		inv.Items = append(inv.Items, InvoiceItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			Price:           item.Price,
			Subtotal:        line.Subtotal,
			DiscountPercent: discount,
			DiscountAmount:  line.DiscountAmount,
			GSTPercent:      product.GSTPercent,
			GSTAmount:       line.GSTAmount,
			Total:           line.Total,
		})
	}
	totals := ComputeTotals(results)
	inv.Subtotal = totals.Subtotal
	inv.DiscountAmount = totals.DiscountAmount
	inv.GSTAmount = totals.GSTAmount
	inv.TotalAmount = totals.TotalAmount
	inv.BalanceAmount = totals.TotalAmount

	var newMargin *float64
	if input.UpdateStoreMargin && input.DiscountPercent != nil {
		newMargin = input.DiscountPercent
	}
	if err := s.repo.Create(ctx, inv, newMargin); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "invoice.generate", inv.ID, inv.InvoiceNumber)
	return inv, nil
}

// Get returns one invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByOrder returns the invoice billed against an order.
func (s *Service) GetByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// List returns invoice headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Approve issues a DRAFT invoice, moving it to UNPAID. No other state may be
// approved.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, TransitionError(inv.Status, StatusUnpaid)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusDraft, StatusUnpaid); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "invoice.approve", id, inv.InvoiceNumber)
	return s.repo.Get(ctx, id)
}

// Delete removes an invoice and reverts the order to APPROVED. Refused once
// payments exist.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.writeAudit(ctx, actor, "invoice.delete", id, inv.InvoiceNumber)
	return nil
}

func (s *Service) writeAudit(ctx context.Context, actor shared.Actor, action string, entityID int64, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     map[string]any{"detail": detail},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
