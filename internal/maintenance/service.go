// Package maintenance holds administrative operations that cut across the
// whole schema, most notably the master reset.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// transactionalTables lists everything the master reset clears, in
// dependency order. Users and master data (stores, products, vendors,
// raw_materials) survive; raw-material stock is zeroed because its movement
// history is gone.
var transactionalTables = []string{
	"payments",
	"invoice_items",
	"invoices",
	"order_items",
	"orders",
	"vendor_bills",
	"purchase_order_items",
	"purchase_orders",
	"inventory_movements",
	"idempotency_keys",
}

var resetSequences = []string{
	"order_number_seq",
	"invoice_number_seq",
	"payment_number_seq",
	"po_number_seq",
	"bill_number_seq",
}

// Service implements maintenance operations.
type Service struct {
	pool   *pgxpool.Pool
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds the Service.
func NewService(pool *pgxpool.Pool, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{pool: pool, audit: audit, logger: logger}
}

// MasterReset truncates every transactional table in one transaction and
// restarts the document number sequences. Admin only.
func (s *Service) MasterReset(ctx context.Context, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only an admin may run a master reset", httpx.ErrForbidden)
	}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range transactionalTables {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE raw_materials SET current_stock = 0, updated_at = NOW()`); err != nil {
			return fmt.Errorf("zero raw material stock: %w", err)
		}
		for _, seq := range resetSequences {
			if _, err := tx.Exec(ctx, `ALTER SEQUENCE `+seq+` RESTART WITH 1`); err != nil {
				return fmt.Errorf("restart %s: %w", seq, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Warn("master reset executed", slog.Int64("actor_id", actor.ID))
	}
	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "maintenance.master_reset",
			Entity:   "system",
			EntityID: "all",
		}); auditErr != nil && s.logger != nil {
			s.logger.Warn("audit write failed", slog.Any("error", auditErr))
		}
	}
	return nil
}
