package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service resolves user roles from the database.
type Service struct {
	pool *pgxpool.Pool
}

// NewService builds the role lookup service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// RoleOf returns the role of an active user.
func (s *Service) RoleOf(ctx context.Context, userID int64) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND is_active`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return role, nil
}
