package stores

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Repository defines persistence for stores.
type Repository interface {
	Create(ctx context.Context, s Store) (int64, error)
	Get(ctx context.Context, id int64) (*Store, error)
	List(ctx context.Context, activeOnly bool) ([]Store, error)
	Update(ctx context.Context, s Store) error
	UpdateMargin(ctx context.Context, id int64, marginPercent float64) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const storeColumns = `id, code, name, address, phone, margin_percent, is_active, created_at, updated_at`

func scanStore(row pgx.Row) (*Store, error) {
	var s Store
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.Phone, &s.MarginPercent, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) Create(ctx context.Context, s Store) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO stores (code, name, address, phone, margin_percent, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW()) RETURNING id`,
		s.Code, s.Name, s.Address, s.Phone, s.MarginPercent).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, httpx.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Store, error) {
	return scanStore(r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.Phone, &s.MarginPercent, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, s Store) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stores SET name = $1, address = $2, phone = $3, margin_percent = $4, is_active = $5, updated_at = NOW()
WHERE id = $6`, s.Name, s.Address, s.Phone, s.MarginPercent, s.IsActive, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateMargin(ctx context.Context, id int64, marginPercent float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stores SET margin_percent = $1, updated_at = NOW() WHERE id = $2`, marginPercent, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stores SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
