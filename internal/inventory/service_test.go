package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	nextMaterialID int64
	nextMovementID int64
	materials      map[int64]*RawMaterial
	movements      []Movement
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{materials: map[int64]*RawMaterial{}}
}

func (m *memoryRepo) CreateMaterial(_ context.Context, material RawMaterial) (int64, error) {
	m.nextMaterialID++
	material.ID = m.nextMaterialID
	material.IsActive = true
	m.materials[material.ID] = &material
	return material.ID, nil
}

func (m *memoryRepo) GetMaterial(_ context.Context, id int64) (*RawMaterial, error) {
	material, ok := m.materials[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *material
	return &cp, nil
}

func (m *memoryRepo) ListMaterials(_ context.Context, _ bool) ([]RawMaterial, error) {
	var out []RawMaterial
	for _, material := range m.materials {
		out = append(out, *material)
	}
	return out, nil
}

func (m *memoryRepo) UpdateMaterial(_ context.Context, material RawMaterial) error {
	existing, ok := m.materials[material.ID]
	if !ok {
		return httpx.ErrNotFound
	}
	existing.Name = material.Name
	existing.Unit = material.Unit
	existing.MinStock = material.MinStock
	existing.IsActive = material.IsActive
	return nil
}

// Post mirrors the real repository: the movement row is recorded only when
// the stock transition is legal, both or neither.
func (m *memoryRepo) Post(_ context.Context, movement *Movement) error {
	material, ok := m.materials[movement.RawMaterialID]
	if !ok {
		return httpx.ErrNotFound
	}
	next, err := NextStock(material.CurrentStock, movement.Type, movement.Quantity)
	if err != nil {
		return err
	}
	m.nextMovementID++
	movement.ID = m.nextMovementID
	m.movements = append(m.movements, *movement)
	material.CurrentStock = next
	return nil
}

func (m *memoryRepo) ListMovements(_ context.Context, rawMaterialID int64, offset, limit int) ([]Movement, int, error) {
	var all []Movement
	for _, movement := range m.movements {
		if rawMaterialID != 0 && movement.RawMaterialID != rawMaterialID {
			continue
		}
		all = append(all, movement)
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memoryRepo) LowStock(_ context.Context) ([]RawMaterial, error) {
	var out []RawMaterial
	for _, material := range m.materials {
		if material.IsActive && material.CurrentStock <= material.MinStock {
			out = append(out, *material)
		}
	}
	return out, nil
}

var (
	staff = shared.Actor{ID: 7, Role: shared.RoleStaff}
	admin = shared.Actor{ID: 1, Role: shared.RoleAdmin}
)

func testSetup(t *testing.T, opening float64) (*Service, *memoryRepo, int64) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo)
	material, err := svc.CreateMaterial(context.Background(), RawMaterial{Code: "FLOUR", Name: "Flour", Unit: "kg", MinStock: 20})
	require.NoError(t, err)
	if opening > 0 {
		_, err := svc.Adjust(context.Background(), admin, material.ID, opening, "opening balance")
		require.NoError(t, err)
	}
	return svc, repo, material.ID
}

func TestNextStock(t *testing.T) {
	next, err := NextStock(10, MovementIn, 5)
	require.NoError(t, err)
	require.Equal(t, 15.0, next)

	next, err = NextStock(10, MovementOut, 10)
	require.NoError(t, err)
	require.Equal(t, 0.0, next)

	_, err = NextStock(10, MovementOut, 11)
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)

	next, err = NextStock(10, MovementAdjustment, -4)
	require.NoError(t, err)
	require.Equal(t, 6.0, next)

	_, err = NextStock(10, MovementAdjustment, -11)
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)

	_, err = NextStock(10, MovementIn, -1)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestIssueConsumesStock(t *testing.T) {
	svc, repo, id := testSetup(t, 100)

	movement, err := svc.Issue(context.Background(), staff, id, 30, "BATCH-1", "")
	require.NoError(t, err)
	require.Equal(t, MovementOut, movement.Type)
	require.Equal(t, 70.0, repo.materials[id].CurrentStock)
}

func TestIssueBeyondStockFails(t *testing.T) {
	svc, repo, id := testSetup(t, 10)

	_, err := svc.Issue(context.Background(), staff, id, 11, "", "")
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	// Stock untouched, and no movement row recorded.
	require.Equal(t, 10.0, repo.materials[id].CurrentStock)
	movements, _, err := svc.Movements(context.Background(), id, 0, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1) // only the opening adjustment
}

func TestMovementsPagination(t *testing.T) {
	svc, _, id := testSetup(t, 100)

	_, err := svc.Issue(context.Background(), staff, id, 10, "", "")
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), staff, id, 5, "", "")
	require.NoError(t, err)

	first, pagination, err := svc.Movements(context.Background(), id, 1, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 3, pagination.Total)
	require.Equal(t, 2, pagination.TotalPages)

	second, pagination, err := svc.Movements(context.Background(), id, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 2, pagination.Page)
}

func TestAdjustRequiresAdmin(t *testing.T) {
	svc, _, id := testSetup(t, 10)

	_, err := svc.Adjust(context.Background(), staff, id, -5, "shrinkage")
	require.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.Adjust(context.Background(), admin, id, -5, "shrinkage")
	require.NoError(t, err)
}

func TestLowStock(t *testing.T) {
	svc, _, id := testSetup(t, 100)

	low, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Empty(t, low)

	_, err = svc.Issue(context.Background(), staff, id, 85, "", "")
	require.NoError(t, err)

	low, err = svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, id, low[0].ID)
}
