package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Service handles store master data.
type Service struct {
	repo Repository
}

// NewService builds the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateMargin(margin float64) error {
	if margin < 0 || margin > 100 {
		return fmt.Errorf("%w: margin_percent must be between 0 and 100", httpx.ErrValidation)
	}
	return nil
}

// Create registers a new store.
func (s *Service) Create(ctx context.Context, store Store) (*Store, error) {
	store.Code = strings.ToUpper(strings.TrimSpace(store.Code))
	if store.Code == "" {
		return nil, fmt.Errorf("%w: code is required", httpx.ErrValidation)
	}
	if err := validateMargin(store.MarginPercent); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, store)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one store.
func (s *Service) Get(ctx context.Context, id int64) (*Store, error) {
	return s.repo.Get(ctx, id)
}

// List returns stores, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Store, error) {
	return s.repo.List(ctx, activeOnly)
}

// Update mutates store details.
func (s *Service) Update(ctx context.Context, store Store) (*Store, error) {
	if err := validateMargin(store.MarginPercent); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, store.ID)
}

// UpdateMargin changes only the default margin percent. Invoicing calls this
// when the caller asks to persist a new default for the store.
func (s *Service) UpdateMargin(ctx context.Context, id int64, margin float64) error {
	if err := validateMargin(margin); err != nil {
		return err
	}
	return s.repo.UpdateMargin(ctx, id, margin)
}

// Deactivate soft-deletes a store.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
