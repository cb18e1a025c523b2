package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// TxRepository is the transaction-scoped view used while an invoice row is
// held under lock.
type TxRepository interface {
	// GetInvoiceForUpdate row-locks the invoice and returns its monetary
	// snapshot. Concurrent payment transactions serialize on this lock.
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (InvoiceBalance, error)
	InsertPayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	UpdateInvoicePaid(ctx context.Context, invoiceID int64, paid, balance float64, status string) error
}

// Repository defines persistence for payments.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, error)
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	InvoiceID int64
	StoreID   int64
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (InvoiceBalance, error) {
	var b InvoiceBalance
	err := r.tx.QueryRow(ctx, `SELECT id, store_id, total_amount, paid_amount, status
FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).
		Scan(&b.InvoiceID, &b.StoreID, &b.TotalAmount, &b.PaidAmount, &b.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InvoiceBalance{}, httpx.ErrNotFound
		}
		return InvoiceBalance{}, err
	}
	return b, nil
}

func (r *txRepository) InsertPayment(ctx context.Context, p *Payment) error {
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (payment_number, invoice_id, store_id, collected_by, amount, payment_mode, reference, created_at)
VALUES ('PAY-' || LPAD(nextval('payment_number_seq')::text, 6, '0'), $1, $2, $3, $4, $5, $6, NOW())
RETURNING id, payment_number, created_at`,
		p.InvoiceID, p.StoreID, p.CollectedBy, p.Amount, p.PaymentMode, p.Reference).
		Scan(&p.ID, &p.PaymentNumber, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *txRepository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *txRepository) DeletePayment(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *txRepository) UpdateInvoicePaid(ctx context.Context, invoiceID int64, paid, balance float64, status string) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET paid_amount = $1, balance_amount = $2, status = $3, updated_at = NOW() WHERE id = $4`,
		paid, balance, status, invoiceID)
	return err
}

const paymentColumns = `id, payment_number, invoice_id, store_id, collected_by, amount, payment_mode, reference, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PaymentNumber, &p.InvoiceID, &p.StoreID, &p.CollectedBy, &p.Amount, &p.PaymentMode, &p.Reference, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	var (
		args  []any
		where []string
	)
	if filter.InvoiceID != 0 {
		args = append(args, filter.InvoiceID)
		where = append(where, fmt.Sprintf("invoice_id = $%d", len(args)))
	}
	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
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
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PaymentNumber, &p.InvoiceID, &p.StoreID, &p.CollectedBy, &p.Amount, &p.PaymentMode, &p.Reference, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
