package orders

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

// Repository defines persistence for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	Delete(ctx context.Context, id int64) error
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	StoreID int64
	Status  Status
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Create inserts the order header and its items in one transaction. The
// order number is drawn from a database sequence so it is unique under
// concurrent inserts.
func (r *repository) Create(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO orders (order_number, store_id, created_by, status, total_amount, notes, created_at, updated_at)
VALUES ('ORD-' || LPAD(nextval('order_number_seq')::text, 6, '0'), $1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id, order_number, created_at, updated_at`,
			o.StoreID, o.CreatedBy, o.Status, o.TotalAmount, o.Notes).
			Scan(&o.ID, &o.OrderNumber, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return httpx.ErrDuplicate
			}
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range o.Items {
			item := &o.Items[i]
			item.OrderID = o.ID
			err := tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, quantity, price, total, available_quantity)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				item.OrderID, item.ProductID, item.Quantity, item.Price, item.Total, item.AvailableQuantity).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT id, order_number, store_id, created_by, status, total_amount, notes, created_at, updated_at
FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.StoreID, &o.CreatedBy, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, quantity, price, total, available_quantity
FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.Total, &item.AvailableQuantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	query := `SELECT id, order_number, store_id, created_by, status, total_amount, notes, created_at, updated_at FROM orders`
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
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.StoreID, &o.CreatedBy, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus moves the order from→to with a guarded UPDATE so a concurrent
// transition cannot slip through. Zero rows means the order was not in the
// expected state (or does not exist).
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return TransitionError(from, to)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}
