package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/stores"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	nextID   int64
	invoices map[int64]*Invoice
	byOrder  map[int64]int64
	// paymentCounts mimics the payments table check in Delete.
	paymentCounts map[int64]int
	// orderStatus mirrors the order flip done by Create/Delete.
	orderStatus map[int64]orders.Status
	// margins records store margin updates applied alongside Create.
	margins map[int64]float64
}

func newMemoryRepo(orderStatus map[int64]orders.Status) *memoryRepo {
	return &memoryRepo{
		invoices:      map[int64]*Invoice{},
		byOrder:       map[int64]int64{},
		paymentCounts: map[int64]int{},
		orderStatus:   orderStatus,
		margins:       map[int64]float64{},
	}
}

func (m *memoryRepo) Create(_ context.Context, inv *Invoice, newStoreMargin *float64) error {
	if _, exists := m.byOrder[inv.OrderID]; exists {
		return httpx.ErrDuplicate
	}
	if m.orderStatus[inv.OrderID] != orders.StatusApproved {
		return httpx.ErrInvalidTransition
	}
	m.nextID++
	inv.ID = m.nextID
	inv.InvoiceNumber = "INV-TEST"
	inv.PaidAmount = 0
	inv.BalanceAmount = inv.TotalAmount
	cp := *inv
	m.invoices[inv.ID] = &cp
	m.byOrder[inv.OrderID] = inv.ID
	m.orderStatus[inv.OrderID] = orders.StatusInvoiced
	if newStoreMargin != nil {
		m.margins[inv.StoreID] = *newStoreMargin
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memoryRepo) GetByOrder(_ context.Context, orderID int64) (*Invoice, error) {
	id, ok := m.byOrder[orderID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return m.Get(context.Background(), id)
}

func (m *memoryRepo) List(_ context.Context, _ ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	inv, ok := m.invoices[id]
	if !ok || inv.Status != from {
		return TransitionError(from, to)
	}
	inv.Status = to
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	inv, ok := m.invoices[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if m.paymentCounts[id] > 0 {
		return httpx.ErrInvalidTransition
	}
	delete(m.byOrder, inv.OrderID)
	delete(m.invoices, id)
	m.orderStatus[inv.OrderID] = orders.StatusApproved
	return nil
}

type stubOrders struct {
	repo   *memoryRepo
	orders map[int64]*orders.Order
}

func (s *stubOrders) Get(_ context.Context, id int64) (*orders.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *o
	cp.Status = s.repo.orderStatus[id]
	return &cp, nil
}

type stubStores struct{ store stores.Store }

func (s *stubStores) Get(_ context.Context, _ int64) (*stores.Store, error) {
	cp := s.store
	return &cp, nil
}

type stubCatalog struct{ products map[int64]products.Product }

func (s *stubCatalog) GetMany(_ context.Context, ids []int64) (map[int64]products.Product, error) {
	out := map[int64]products.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

var admin = shared.Actor{ID: 1, Role: shared.RoleAdmin}

func testSetup() (*Service, *memoryRepo) {
	orderStatus := map[int64]orders.Status{10: orders.StatusApproved, 11: orders.StatusSubmitted}
	repo := newMemoryRepo(orderStatus)
	orderReader := &stubOrders{repo: repo, orders: map[int64]*orders.Order{
		10: {ID: 10, StoreID: 5, Status: orders.StatusApproved, Items: []orders.OrderItem{
			{ProductID: 1, Quantity: 10, Price: 100, Total: 1000},
		}},
		11: {ID: 11, StoreID: 5, Status: orders.StatusSubmitted, Items: []orders.OrderItem{
			{ProductID: 1, Quantity: 1, Price: 100, Total: 100},
		}},
	}}
	storeReader := &stubStores{store: stores.Store{ID: 5, MarginPercent: 10, IsActive: true}}
	catalog := &stubCatalog{products: map[int64]products.Product{
		1: {ID: 1, GSTPercent: 18, IsActive: true},
	}}
	return NewService(repo, orderReader, storeReader, catalog, nil, nil), repo
}

func TestGenerateUsesStoreMarginDefault(t *testing.T) {
	svc, repo := testSetup()

	inv, err := svc.Generate(context.Background(), admin, GenerateInput{
		OrderID: 10,
		DueDate: time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, 1000.0, inv.Subtotal)
	require.Equal(t, 100.0, inv.DiscountAmount)
	require.Equal(t, 162.0, inv.GSTAmount)
	require.Equal(t, 1062.0, inv.TotalAmount)
	require.Equal(t, 1062.0, inv.BalanceAmount)
	require.Equal(t, 0.0, inv.PaidAmount)
	require.Equal(t, orders.StatusInvoiced, repo.orderStatus[10])
}

func TestGeneratePerProductOverride(t *testing.T) {
	svc, _ := testSetup()

	inv, err := svc.Generate(context.Background(), admin, GenerateInput{
		OrderID:          10,
		ProductDiscounts: map[int64]float64{1: 20},
		DueDate:          time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	require.Equal(t, 200.0, inv.DiscountAmount)
	require.Equal(t, 144.0, inv.GSTAmount) // 800 * 18%
	require.Equal(t, 944.0, inv.TotalAmount)
}

func TestGenerateUpdatesStoreMargin(t *testing.T) {
	svc, repo := testSetup()

	override := 15.0
	_, err := svc.Generate(context.Background(), admin, GenerateInput{
		OrderID:           10,
		DiscountPercent:   &override,
		UpdateStoreMargin: true,
		DueDate:           time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	require.Equal(t, 15.0, repo.margins[5])
}

func TestGenerateRejectsUnapprovedOrder(t *testing.T) {
	svc, _ := testSetup()

	_, err := svc.Generate(context.Background(), admin, GenerateInput{OrderID: 11, DueDate: time.Now()})
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}

func TestGenerateRejectsSecondInvoice(t *testing.T) {
	svc, _ := testSetup()

	_, err := svc.Generate(context.Background(), admin, GenerateInput{OrderID: 10, DueDate: time.Now()})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), admin, GenerateInput{OrderID: 10, DueDate: time.Now()})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestApproveOnlyFromDraft(t *testing.T) {
	svc, _ := testSetup()

	inv, err := svc.Generate(context.Background(), admin, GenerateInput{OrderID: 10, DueDate: time.Now()})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), admin, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, approved.Status)

	_, err = svc.Approve(context.Background(), admin, inv.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}

func TestDeleteRevertsOrder(t *testing.T) {
	svc, repo := testSetup()

	inv, err := svc.Generate(context.Background(), admin, GenerateInput{OrderID: 10, DueDate: time.Now()})
	require.NoError(t, err)
	require.Equal(t, orders.StatusInvoiced, repo.orderStatus[10])

	require.NoError(t, svc.Delete(context.Background(), admin, inv.ID))
	require.Equal(t, orders.StatusApproved, repo.orderStatus[10])
}

func TestDeleteBlockedByPayments(t *testing.T) {
	svc, repo := testSetup()

	inv, err := svc.Generate(context.Background(), admin, GenerateInput{OrderID: 10, DueDate: time.Now()})
	require.NoError(t, err)
	repo.paymentCounts[inv.ID] = 1

	err = svc.Delete(context.Background(), admin, inv.ID)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
	require.Equal(t, orders.StatusInvoiced, repo.orderStatus[10])
}
