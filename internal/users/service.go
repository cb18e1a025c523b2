package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service handles user account management.
type Service struct {
	repo Repository
}

// NewService builds the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput describes a new account.
type CreateInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Create registers a new account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", httpx.ErrValidation)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	role := input.Role
	if role == "" {
		role = shared.RoleStaff
	}
	if role != shared.RoleAdmin && role != shared.RoleStaff {
		return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := User{Email: email, FullName: input.FullName, Role: role, IsActive: true}
	id, err := s.repo.Create(ctx, u, string(hash))
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateInput carries mutable user fields.
type UpdateInput struct {
	FullName string
	Role     string
	IsActive bool
}

// Update mutates profile, role and active flag.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*User, error) {
	if input.Role != shared.RoleAdmin && input.Role != shared.RoleStaff {
		return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, input.Role)
	}
	if err := s.repo.Update(ctx, id, input.FullName, input.Role, input.IsActive); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// ChangePassword replaces the stored hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}
