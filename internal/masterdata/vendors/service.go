package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Service handles vendor master data.
type Service struct {
	repo Repository
}

// NewService builds the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new vendor.
func (s *Service) Create(ctx context.Context, v Vendor) (*Vendor, error) {
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	if v.Code == "" {
		return nil, fmt.Errorf("%w: code is required", httpx.ErrValidation)
	}
	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one vendor.
func (s *Service) Get(ctx context.Context, id int64) (*Vendor, error) {
	return s.repo.Get(ctx, id)
}

// List returns vendors, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Vendor, error) {
	return s.repo.List(ctx, activeOnly)
}

// Update mutates vendor details.
func (s *Service) Update(ctx context.Context, v Vendor) (*Vendor, error) {
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, v.ID)
}

// Deactivate soft-deletes a vendor.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
