package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// ApplyMovement posts one ledger entry inside the caller's transaction: it
// row-locks the raw material, appends the movement and only then writes the
// new stock level. Procurement receiving reuses this from its own
// transaction so goods receipt and billing stay atomic.
func ApplyMovement(ctx context.Context, tx pgx.Tx, m *Movement) error {
	var current float64
	err := tx.QueryRow(ctx, `SELECT current_stock FROM raw_materials WHERE id = $1 FOR UPDATE`, m.RawMaterialID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: raw material %d", httpx.ErrNotFound, m.RawMaterialID)
		}
		return err
	}
	next, err := NextStock(current, m.Type, m.Quantity)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `INSERT INTO inventory_movements (raw_material_id, type, quantity, reference, notes, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`,
		m.RawMaterialID, m.Type, m.Quantity, m.Reference, m.Notes, m.CreatedBy).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE raw_materials SET current_stock = $1, updated_at = NOW() WHERE id = $2`, next, m.RawMaterialID)
	return err
}
