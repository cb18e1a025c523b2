package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	nextID int64
	orders map[int64]*Order
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[int64]*Order{}}
}

func (m *memoryRepo) Create(_ context.Context, o *Order) error {
	m.nextID++
	o.ID = m.nextID
	o.OrderNumber = "ORD-TEST"
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if filter.StoreID != 0 && o.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return TransitionError(from, to)
	}
	o.Status = to
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

type memoryCatalog struct {
	products map[int64]products.Product
}

func (m *memoryCatalog) GetMany(_ context.Context, ids []int64) (map[int64]products.Product, error) {
	out := map[int64]products.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func testSetup() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{
		1: {ID: 1, Code: "P1", Price: 100, GSTPercent: 18, IsActive: true},
		2: {ID: 2, Code: "P2", Price: 50, GSTPercent: 5, IsActive: true},
	}}
	return NewService(repo, catalog, nil, nil), repo
}

var (
	staff = shared.Actor{ID: 7, Role: shared.RoleStaff}
	admin = shared.Actor{ID: 1, Role: shared.RoleAdmin}
)

func TestCreateComputesTotals(t *testing.T) {
	svc, _ := testSetup()

	order, err := svc.Create(context.Background(), staff, CreateInput{
		StoreID: 3,
		Items: []CreateItemInput{
			{ProductID: 1, Quantity: 10},
			{ProductID: 2, Quantity: 4},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, int64(7), order.CreatedBy)
	require.Len(t, order.Items, 2)
	require.Equal(t, 1000.0, order.Items[0].Total)
	require.Equal(t, 200.0, order.Items[1].Total)
	require.Equal(t, 1200.0, order.TotalAmount)
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, _ := testSetup()

	_, err := svc.Create(context.Background(), staff, CreateInput{
		StoreID: 3,
		Items:   []CreateItemInput{{ProductID: 99, Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, _ := testSetup()
	order := mustCreate(t, svc)

	submitted, err := svc.Submit(context.Background(), staff, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)

	approved, err := svc.Approve(context.Background(), admin, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
}

func TestApproveRequiresAdmin(t *testing.T) {
	svc, _ := testSetup()
	order := mustCreate(t, svc)

	_, err := svc.Submit(context.Background(), staff, order.ID)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), staff, order.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestIllegalTransitionsRejected(t *testing.T) {
	svc, _ := testSetup()
	order := mustCreate(t, svc)

	// DRAFT cannot jump straight to APPROVED.
	_, err := svc.Approve(context.Background(), admin, order.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)

	_, err = svc.Cancel(context.Background(), staff, order.ID)
	require.NoError(t, err)

	// CANCELLED is terminal.
	_, err = svc.Submit(context.Background(), staff, order.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}

func TestDeleteRules(t *testing.T) {
	svc, repo := testSetup()
	order := mustCreate(t, svc)

	// A different staff member may not delete someone else's draft.
	other := shared.Actor{ID: 42, Role: shared.RoleStaff}
	err := svc.Delete(context.Background(), other, order.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	// The creator may.
	require.NoError(t, svc.Delete(context.Background(), staff, order.ID))

	// Once approved, only an admin may delete.
	order = mustCreate(t, svc)
	_, err = svc.Submit(context.Background(), staff, order.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), admin, order.ID)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), staff, order.ID)
	require.ErrorIs(t, err, httpx.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), admin, order.ID))

	// An invoiced order is never deletable, even for an admin.
	order = mustCreate(t, svc)
	repo.orders[order.ID].Status = StatusInvoiced
	err = svc.Delete(context.Background(), admin, order.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
	require.False(t, errors.Is(err, httpx.ErrNotFound))
}

func mustCreate(t *testing.T, svc *Service) *Order {
	t.Helper()
	order, err := svc.Create(context.Background(), staff, CreateInput{
		StoreID: 3,
		Items:   []CreateItemInput{{ProductID: 1, Quantity: 10}},
	})
	require.NoError(t, err)
	return order
}
