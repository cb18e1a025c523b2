package inventory

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

// Repository defines persistence for raw materials and their ledger.
type Repository interface {
	CreateMaterial(ctx context.Context, m RawMaterial) (int64, error)
	GetMaterial(ctx context.Context, id int64) (*RawMaterial, error)
	ListMaterials(ctx context.Context, activeOnly bool) ([]RawMaterial, error)
	UpdateMaterial(ctx context.Context, m RawMaterial) error
	// Post appends one movement and applies it to stock atomically.
	Post(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, rawMaterialID int64, offset, limit int) ([]Movement, int, error)
	// LowStock returns active materials at or below their minimum level.
	LowStock(ctx context.Context) ([]RawMaterial, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const materialColumns = `id, code, name, unit, current_stock, min_stock, is_active, created_at, updated_at`

func (r *repository) CreateMaterial(ctx context.Context, m RawMaterial) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO raw_materials (code, name, unit, current_stock, min_stock, is_active, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, TRUE, NOW(), NOW()) RETURNING id`,
		m.Code, m.Name, m.Unit, m.MinStock).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, httpx.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) GetMaterial(ctx context.Context, id int64) (*RawMaterial, error) {
	var m RawMaterial
	err := r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM raw_materials WHERE id = $1`, id).
		Scan(&m.ID, &m.Code, &m.Name, &m.Unit, &m.CurrentStock, &m.MinStock, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListMaterials(ctx context.Context, activeOnly bool) ([]RawMaterial, error) {
	query := `SELECT ` + materialColumns + ` FROM raw_materials`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	return r.queryMaterials(ctx, query)
}

func (r *repository) LowStock(ctx context.Context) ([]RawMaterial, error) {
	return r.queryMaterials(ctx, `SELECT `+materialColumns+` FROM raw_materials WHERE is_active AND current_stock <= min_stock ORDER BY code`)
}

func (r *repository) queryMaterials(ctx context.Context, query string, args ...any) ([]RawMaterial, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RawMaterial
	for rows.Next() {
		var m RawMaterial
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Unit, &m.CurrentStock, &m.MinStock, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) UpdateMaterial(ctx context.Context, m RawMaterial) error {
	tag, err := r.pool.Exec(ctx, `UPDATE raw_materials SET name = $1, unit = $2, min_stock = $3, is_active = $4, updated_at = NOW()
WHERE id = $5`, m.Name, m.Unit, m.MinStock, m.IsActive, m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Post(ctx context.Context, m *Movement) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return ApplyMovement(ctx, tx, m)
	})
}

func (r *repository) ListMovements(ctx context.Context, rawMaterialID int64, offset, limit int) ([]Movement, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	countQuery := `SELECT COUNT(*) FROM inventory_movements`
	query := `SELECT id, raw_material_id, type, quantity, reference, notes, created_by, created_at FROM inventory_movements`
	var args []any
	if rawMaterialID != 0 {
		args = append(args, rawMaterialID)
		clause := fmt.Sprintf(" WHERE raw_material_id = $%d", len(args))
		countQuery += clause
		query += clause
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.RawMaterialID, &m.Type, &m.Quantity, &m.Reference, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
