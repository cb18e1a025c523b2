package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Repository defines persistence for invoices. Create and Delete are
// transactional with the order status flip they imply.
type Repository interface {
	Create(ctx context.Context, inv *Invoice, newStoreMargin *float64) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID int64) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	Delete(ctx context.Context, id int64) error
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	StoreID int64
	Status  Status
	Overdue bool
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, invoice_number, order_id, store_id, subtotal, discount_percent, discount_amount, gst_amount, total_amount, paid_amount, balance_amount, status, due_date, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.StoreID, &inv.Subtotal, &inv.DiscountPercent,
		&inv.DiscountAmount, &inv.GSTAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.BalanceAmount,
		&inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Create inserts the invoice with its items, moves the billed order to
// INVOICED and optionally persists a new store margin default, all in one
// transaction. The guarded order UPDATE doubles as the approved-state check:
// if a concurrent invoice got there first the order is no longer APPROVED and
// the whole transaction rolls back.
func (r *repository) Create(ctx context.Context, inv *Invoice, newStoreMargin *float64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO invoices (invoice_number, order_id, store_id, subtotal, discount_percent, discount_amount, gst_amount, total_amount, paid_amount, balance_amount, status, due_date, created_at, updated_at)
VALUES ('INV-' || LPAD(nextval('invoice_number_seq')::text, 6, '0'), $1, $2, $3, $4, $5, $6, $7, 0, $7, $8, $9, NOW(), NOW())
RETURNING id, invoice_number, created_at, updated_at`,
			inv.OrderID, inv.StoreID, inv.Subtotal, inv.DiscountPercent, inv.DiscountAmount,
			inv.GSTAmount, inv.TotalAmount, inv.Status, inv.DueDate).
			Scan(&inv.ID, &inv.InvoiceNumber, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: order %d already has an invoice", httpx.ErrDuplicate, inv.OrderID)
			}
			return fmt.Errorf("insert invoice: %w", err)
		}
		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			err := tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, product_id, quantity, price, subtotal, discount_percent, discount_amount, gst_percent, gst_amount, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
				item.InvoiceID, item.ProductID, item.Quantity, item.Price, item.Subtotal,
				item.DiscountPercent, item.DiscountAmount, item.GSTPercent, item.GSTAmount, item.Total).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert invoice item: %w", err)
			}
		}
		tag, err := tx.Exec(ctx, `UPDATE orders SET status = 'INVOICED', updated_at = NOW() WHERE id = $1 AND status = 'APPROVED'`, inv.OrderID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: order %d is not approved", httpx.ErrInvalidTransition, inv.OrderID)
		}
		if newStoreMargin != nil {
			if _, err := tx.Exec(ctx, `UPDATE stores SET margin_percent = $1, updated_at = NOW() WHERE id = $2`, *newStoreMargin, inv.StoreID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) loadItems(ctx context.Context, inv *Invoice) error {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, product_id, quantity, price, subtotal, discount_percent, discount_amount, gst_percent, gst_amount, total
FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity, &item.Price, &item.Subtotal,
			&item.DiscountPercent, &item.DiscountAmount, &item.GSTPercent, &item.GSTAmount, &item.Total); err != nil {
			return err
		}
		inv.Items = append(inv.Items, item)
	}
	return rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var (
		args  []any
		where []string
	)
	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Overdue {
		where = append(where, "due_date < NOW() AND status IN ('UNPAID', 'PARTIAL')")
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
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.StoreID, &inv.Subtotal, &inv.DiscountPercent,
			&inv.DiscountAmount, &inv.GSTAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.BalanceAmount,
			&inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return TransitionError(from, to)
	}
	return nil
}

// Delete removes the invoice and reverts its order to APPROVED in one
// transaction. Deletion is refused while payments reference the invoice.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var paymentCount int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, id).Scan(&paymentCount); err != nil {
			return err
		}
		if paymentCount > 0 {
			return fmt.Errorf("%w: invoice has %d recorded payments", httpx.ErrInvalidTransition, paymentCount)
		}
		var orderID int64
		err := tx.QueryRow(ctx, `SELECT order_id FROM invoices WHERE id = $1`, id).Scan(&orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET status = 'APPROVED', updated_at = NOW() WHERE id = $1 AND status = 'INVOICED'`, orderID)
		return err
	})
}
