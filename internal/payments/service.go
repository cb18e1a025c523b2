package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service implements payment recording and reversal.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds the Service.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// RecordInput describes a new payment.
type RecordInput struct {
	InvoiceID   int64
	Amount      float64
	PaymentMode string
	Reference   string
}

// Record accepts a payment against an invoice. The invoice row is locked for
// the duration of the transaction, so the balance check and the paid/status
// update are atomic with respect to concurrent payments: the sum of accepted
// payments can never exceed the invoice total.
func (s *Service) Record(ctx context.Context, actor shared.Actor, input RecordInput) (*Payment, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", httpx.ErrNonPositiveAmount)
	}
	var payment *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == string(invoices.StatusDraft) {
			return fmt.Errorf("%w: draft invoices cannot accept payments", httpx.ErrInvalidTransition)
		}
		outstanding := invoices.RemainingBalance(inv.TotalAmount, inv.PaidAmount)
		if input.Amount > outstanding {
			return fmt.Errorf("%w: amount %.2f exceeds outstanding balance %.2f", httpx.ErrExceedsBalance, input.Amount, outstanding)
		}

		payment = &Payment{
			InvoiceID:   input.InvoiceID,
			StoreID:     inv.StoreID,
			CollectedBy: actor.ID,
			Amount:      input.Amount,
			PaymentMode: input.PaymentMode,
			Reference:   input.Reference,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}

		paid := inv.PaidAmount + input.Amount
		balance := invoices.RemainingBalance(inv.TotalAmount, paid)
		status := invoices.StatusForPaid(paid, inv.TotalAmount)
		return tx.UpdateInvoicePaid(ctx, input.InvoiceID, paid, balance, string(status))
	})
	if err != nil {
		return nil, err
	}
	s.writeAudit(ctx, actor, "payment.record", payment.ID, payment.PaymentNumber)
	return payment, nil
}

// Get returns one payment.
func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

// List returns payments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	return s.repo.List(ctx, filter)
}

// Delete reverses a payment: the invoice's paid amount drops by the payment
// amount (floored at zero), the balance and status are recomputed and the
// payment row is removed, all atomically under the invoice lock.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	var reversed Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		inv, err := tx.GetInvoiceForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}

		paid := inv.PaidAmount - payment.Amount
		if paid < 0 {
			paid = 0
		}
		balance := invoices.RemainingBalance(inv.TotalAmount, paid)
		status := invoices.StatusForPaid(paid, inv.TotalAmount)

		if err := tx.DeletePayment(ctx, id); err != nil {
			return err
		}
		reversed = *payment
		return tx.UpdateInvoicePaid(ctx, payment.InvoiceID, paid, balance, string(status))
	})
	if err != nil {
		return err
	}
	s.writeAudit(ctx, actor, "payment.delete", id, reversed.PaymentNumber)
	return nil
}

func (s *Service) writeAudit(ctx context.Context, actor shared.Actor, action string, entityID int64, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "payment",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     map[string]any{"detail": detail},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
