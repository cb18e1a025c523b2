package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Repository defines persistence for purchase orders and vendor bills.
type Repository interface {
	CreatePO(ctx context.Context, po *PurchaseOrder) error
	GetPO(ctx context.Context, id int64) (*PurchaseOrder, error)
	ListPOs(ctx context.Context, filter POFilter) ([]PurchaseOrder, error)
	// Receive marks the PO REACHED_OFFICE, posts one IN movement per line and
	// raises the vendor bill, all in one transaction.
	Receive(ctx context.Context, poID, receivedBy int64) (*VendorBill, error)
	GetBill(ctx context.Context, id int64) (*VendorBill, error)
	ListBills(ctx context.Context, filter BillFilter) ([]VendorBill, error)
	UpdateBillStatus(ctx context.Context, id int64, from, to BillStatus) error
}

// POFilter narrows ListPOs. Zero values mean no filter.
type POFilter struct {
	VendorID int64
	Status   POStatus
}

// BillFilter narrows ListBills. Zero values mean no filter.
type BillFilter struct {
	VendorID int64
	Status   BillStatus
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) CreatePO(ctx context.Context, po *PurchaseOrder) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO purchase_orders (po_number, vendor_id, created_by, status, total_amount, notes, created_at, updated_at)
VALUES ('PO-' || LPAD(nextval('po_number_seq')::text, 6, '0'), $1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id, po_number, created_at, updated_at`,
			po.VendorID, po.CreatedBy, po.Status, po.TotalAmount, po.Notes).
			Scan(&po.ID, &po.PONumber, &po.CreatedAt, &po.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return httpx.ErrDuplicate
			}
			return fmt.Errorf("insert purchase order: %w", err)
		}
		for i := range po.Items {
			item := &po.Items[i]
			item.PurchaseOrderID = po.ID
			err := tx.QueryRow(ctx, `INSERT INTO purchase_order_items (purchase_order_id, raw_material_id, quantity, price, total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				item.PurchaseOrderID, item.RawMaterialID, item.Quantity, item.Price, item.Total).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert purchase order item: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) GetPO(ctx context.Context, id int64) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT id, po_number, vendor_id, created_by, status, total_amount, notes, created_at, updated_at
FROM purchase_orders WHERE id = $1`, id).
		Scan(&po.ID, &po.PONumber, &po.VendorID, &po.CreatedBy, &po.Status, &po.TotalAmount, &po.Notes, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_order_id, raw_material_id, quantity, price, total
FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.RawMaterialID, &item.Quantity, &item.Price, &item.Total); err != nil {
			return nil, err
		}
		po.Items = append(po.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) ListPOs(ctx context.Context, filter POFilter) ([]PurchaseOrder, error) {
	query := `SELECT id, po_number, vendor_id, created_by, status, total_amount, notes, created_at, updated_at FROM purchase_orders`
	var (
		args  []any
		where []string
	)
	if filter.VendorID != 0 {
		args = append(args, filter.VendorID)
		where = append(where, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY id DESC"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.PONumber, &po.VendorID, &po.CreatedBy, &po.Status, &po.TotalAmount, &po.Notes, &po.CreatedAt, &po.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

// Receive row-locks the PO so a concurrent receive blocks, then the status
// guard rejects whichever transaction ran second.
func (r *repository) Receive(ctx context.Context, poID, receivedBy int64) (*VendorBill, error) {
	var bill VendorBill
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			status      POStatus
			vendorID    int64
			totalAmount float64
			poNumber    string
		)
		err := tx.QueryRow(ctx, `SELECT status, vendor_id, total_amount, po_number FROM purchase_orders WHERE id = $1 FOR UPDATE`, poID).
			Scan(&status, &vendorID, &totalAmount, &poNumber)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		if status != POPending {
			return fmt.Errorf("%w: purchase order %s was already received", httpx.ErrInvalidTransition, poNumber)
		}

		rows, err := tx.Query(ctx, `SELECT raw_material_id, quantity FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id`, poID)
		if err != nil {
			return err
		}
		type line struct {
			rawMaterialID int64
			quantity      float64
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.rawMaterialID, &l.quantity); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, l := range lines {
			movement := &inventory.Movement{
				RawMaterialID: l.rawMaterialID,
				Type:          inventory.MovementIn,
				Quantity:      l.quantity,
				Reference:     poNumber,
				CreatedBy:     receivedBy,
			}
			if err := inventory.ApplyMovement(ctx, tx, movement); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2`, POReachedOffice, poID); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `INSERT INTO vendor_bills (bill_number, purchase_order_id, vendor_id, amount, status, created_at, updated_at)
VALUES ('BILL-' || LPAD(nextval('bill_number_seq')::text, 6, '0'), $1, $2, $3, $4, NOW(), NOW())
RETURNING id, bill_number, created_at, updated_at`,
			poID, vendorID, totalAmount, BillPendingDispatch).
			Scan(&bill.ID, &bill.BillNumber, &bill.CreatedAt, &bill.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert vendor bill: %w", err)
		}
		bill.PurchaseOrderID = poID
		bill.VendorID = vendorID
		bill.Amount = totalAmount
		bill.Status = BillPendingDispatch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

const billColumns = `id, bill_number, purchase_order_id, vendor_id, amount, status, created_at, updated_at`

func (r *repository) GetBill(ctx context.Context, id int64) (*VendorBill, error) {
	var b VendorBill
	err := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM vendor_bills WHERE id = $1`, id).
		Scan(&b.ID, &b.BillNumber, &b.PurchaseOrderID, &b.VendorID, &b.Amount, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListBills(ctx context.Context, filter BillFilter) ([]VendorBill, error) {
	query := `SELECT ` + billColumns + ` FROM vendor_bills`
	var (
		args  []any
		where []string
	)
	if filter.VendorID != 0 {
		args = append(args, filter.VendorID)
		where = append(where, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY id DESC"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VendorBill
	for rows.Next() {
		var b VendorBill
		if err := rows.Scan(&b.ID, &b.BillNumber, &b.PurchaseOrderID, &b.VendorID, &b.Amount, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) UpdateBillStatus(ctx context.Context, id int64, from, to BillStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vendor_bills SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return BillTransitionError(from, to)
	}
	return nil
}
