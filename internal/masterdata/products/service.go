package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Service handles product master data.
type Service struct {
	repo Repository
}

// NewService builds the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateProduct(p Product) error {
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", httpx.ErrValidation)
	}
	if p.GSTPercent < 0 || p.GSTPercent > 100 {
		return fmt.Errorf("%w: gst_percent must be between 0 and 100", httpx.ErrValidation)
	}
	return nil
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, p Product) (*Product, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if p.Code == "" {
		return nil, fmt.Errorf("%w: code is required", httpx.ErrValidation)
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// GetMany loads products keyed by id.
func (s *Service) GetMany(ctx context.Context, ids []int64) (map[int64]Product, error) {
	return s.repo.GetMany(ctx, ids)
}

// List returns products, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.List(ctx, activeOnly)
}

// Update mutates product details.
func (s *Service) Update(ctx context.Context, p Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, p.ID)
}

// Deactivate soft-deletes a product.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
