package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service implements raw-material master data and manual stock movements.
type Service struct {
	repo Repository
}

// NewService builds the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateMaterial registers a raw material with zero opening stock. Opening
// balances arrive as ADJUSTMENT movements so the ledger stays complete.
func (s *Service) CreateMaterial(ctx context.Context, m RawMaterial) (*RawMaterial, error) {
	m.Code = strings.ToUpper(strings.TrimSpace(m.Code))
	if m.Code == "" {
		return nil, fmt.Errorf("%w: code is required", httpx.ErrValidation)
	}
	if m.MinStock < 0 {
		return nil, fmt.Errorf("%w: min_stock must not be negative", httpx.ErrValidation)
	}
	id, err := s.repo.CreateMaterial(ctx, m)
	if err != nil {
		return nil, err
	}
	return s.repo.GetMaterial(ctx, id)
}

// GetMaterial returns one raw material.
func (s *Service) GetMaterial(ctx context.Context, id int64) (*RawMaterial, error) {
	return s.repo.GetMaterial(ctx, id)
}

// ListMaterials returns raw materials.
func (s *Service) ListMaterials(ctx context.Context, activeOnly bool) ([]RawMaterial, error) {
	return s.repo.ListMaterials(ctx, activeOnly)
}

// UpdateMaterial mutates material details. Stock is not updatable here.
func (s *Service) UpdateMaterial(ctx context.Context, m RawMaterial) (*RawMaterial, error) {
	if m.MinStock < 0 {
		return nil, fmt.Errorf("%w: min_stock must not be negative", httpx.ErrValidation)
	}
	if err := s.repo.UpdateMaterial(ctx, m); err != nil {
		return nil, err
	}
	return s.repo.GetMaterial(ctx, m.ID)
}

// Issue posts an OUT movement, e.g. materials drawn for production.
func (s *Service) Issue(ctx context.Context, actor shared.Actor, rawMaterialID int64, quantity float64, reference, notes string) (*Movement, error) {
	m := &Movement{
		RawMaterialID: rawMaterialID,
		Type:          MovementOut,
		Quantity:      quantity,
		Reference:     reference,
		Notes:         notes,
		CreatedBy:     actor.ID,
	}
	if err := s.repo.Post(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Adjust posts an ADJUSTMENT movement with a signed delta. Admin only: stock
// corrections bypass the normal receive/issue flow.
func (s *Service) Adjust(ctx context.Context, actor shared.Actor, rawMaterialID int64, delta float64, notes string) (*Movement, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin may adjust stock", httpx.ErrForbidden)
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta must not be zero", httpx.ErrValidation)
	}
	m := &Movement{
		RawMaterialID: rawMaterialID,
		Type:          MovementAdjustment,
		Quantity:      delta,
		Notes:         notes,
		CreatedBy:     actor.ID,
	}
	if err := s.repo.Post(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Movements returns one page of ledger entries, newest first.
func (s *Service) Movements(ctx context.Context, rawMaterialID int64, page, perPage int) ([]Movement, shared.Pagination, error) {
	if perPage <= 0 || perPage > 500 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.ListMovements(ctx, rawMaterialID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// LowStock returns active materials at or below their minimum level.
func (s *Service) LowStock(ctx context.Context) ([]RawMaterial, error) {
	return s.repo.LowStock(ctx)
}
