package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	nextPOID   int64
	nextBillID int64
	pos        map[int64]*PurchaseOrder
	bills      map[int64]*VendorBill
	// stocks mirrors the raw_materials table touched by Receive.
	stocks    map[int64]float64
	movements []inventory.Movement
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		pos:    map[int64]*PurchaseOrder{},
		bills:  map[int64]*VendorBill{},
		stocks: map[int64]float64{},
	}
}

func (m *memoryRepo) CreatePO(_ context.Context, po *PurchaseOrder) error {
	m.nextPOID++
	po.ID = m.nextPOID
	po.PONumber = "PO-TEST"
	for i := range po.Items {
		po.Items[i].PurchaseOrderID = po.ID
	}
	cp := *po
	m.pos[po.ID] = &cp
	return nil
}

func (m *memoryRepo) GetPO(_ context.Context, id int64) (*PurchaseOrder, error) {
	po, ok := m.pos[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *po
	return &cp, nil
}

func (m *memoryRepo) ListPOs(_ context.Context, _ POFilter) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range m.pos {
		out = append(out, *po)
	}
	return out, nil
}

func (m *memoryRepo) Receive(_ context.Context, poID, receivedBy int64) (*VendorBill, error) {
	po, ok := m.pos[poID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if po.Status != POPending {
		return nil, httpx.ErrInvalidTransition
	}
	for _, item := range po.Items {
		next, err := inventory.NextStock(m.stocks[item.RawMaterialID], inventory.MovementIn, item.Quantity)
		if err != nil {
			return nil, err
		}
		m.movements = append(m.movements, inventory.Movement{
			RawMaterialID: item.RawMaterialID,
			Type:          inventory.MovementIn,
			Quantity:      item.Quantity,
			Reference:     po.PONumber,
			CreatedBy:     receivedBy,
		})
		m.stocks[item.RawMaterialID] = next
	}
	po.Status = POReachedOffice
	m.nextBillID++
	bill := &VendorBill{
		ID:              m.nextBillID,
		BillNumber:      "BILL-TEST",
		PurchaseOrderID: poID,
		VendorID:        po.VendorID,
		Amount:          po.TotalAmount,
		Status:          BillPendingDispatch,
	}
	m.bills[bill.ID] = bill
	cp := *bill
	return &cp, nil
}

func (m *memoryRepo) GetBill(_ context.Context, id int64) (*VendorBill, error) {
	bill, ok := m.bills[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *bill
	return &cp, nil
}

func (m *memoryRepo) ListBills(_ context.Context, _ BillFilter) ([]VendorBill, error) {
	var out []VendorBill
	for _, bill := range m.bills {
		out = append(out, *bill)
	}
	return out, nil
}

func (m *memoryRepo) UpdateBillStatus(_ context.Context, id int64, from, to BillStatus) error {
	bill, ok := m.bills[id]
	if !ok || bill.Status != from {
		return BillTransitionError(from, to)
	}
	bill.Status = to
	return nil
}

type memoryIdem struct {
	keys map[string]bool
}

func (m *memoryIdem) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdem) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

var staff = shared.Actor{ID: 7, Role: shared.RoleStaff}

func testSetup() (*Service, *memoryRepo, *memoryIdem) {
	repo := newMemoryRepo()
	idem := &memoryIdem{keys: map[string]bool{}}
	return NewService(repo, idem, nil, nil), repo, idem
}

func mustCreatePO(t *testing.T, svc *Service) *PurchaseOrder {
	t.Helper()
	po, err := svc.CreatePO(context.Background(), staff, CreateInput{
		VendorID: 3,
		Items: []CreateItemInput{
			{RawMaterialID: 1, Quantity: 100, Price: 12.5},
			{RawMaterialID: 2, Quantity: 40, Price: 8},
		},
	})
	require.NoError(t, err)
	return po
}

func TestCreatePOComputesTotal(t *testing.T) {
	svc, _, _ := testSetup()
	po := mustCreatePO(t, svc)

	require.Equal(t, POPending, po.Status)
	require.Equal(t, 1250.0, po.Items[0].Total)
	require.Equal(t, 320.0, po.Items[1].Total)
	require.Equal(t, 1570.0, po.TotalAmount)
}

func TestReceivePostsLedgerAndBill(t *testing.T) {
	svc, repo, _ := testSetup()
	po := mustCreatePO(t, svc)

	bill, err := svc.Receive(context.Background(), staff, po.ID, "")
	require.NoError(t, err)
	require.Equal(t, BillPendingDispatch, bill.Status)
	require.Equal(t, po.TotalAmount, bill.Amount)
	require.Equal(t, po.VendorID, bill.VendorID)

	require.Equal(t, POReachedOffice, repo.pos[po.ID].Status)
	require.Equal(t, 100.0, repo.stocks[1])
	require.Equal(t, 40.0, repo.stocks[2])
	require.Len(t, repo.movements, 2)
	require.Equal(t, inventory.MovementIn, repo.movements[0].Type)
}

func TestSecondReceiveRejected(t *testing.T) {
	svc, repo, _ := testSetup()
	po := mustCreatePO(t, svc)

	_, err := svc.Receive(context.Background(), staff, po.ID, "")
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), staff, po.ID, "")
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
	// Stock credited exactly once.
	require.Equal(t, 100.0, repo.stocks[1])
	require.Len(t, repo.movements, 2)
}

func TestReceiveIdempotencyKey(t *testing.T) {
	svc, _, idem := testSetup()
	po := mustCreatePO(t, svc)

	_, err := svc.Receive(context.Background(), staff, po.ID, "key-1")
	require.NoError(t, err)

	// A retry with the same key is caught before the repository runs.
	_, err = svc.Receive(context.Background(), staff, po.ID, "key-1")
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)

	// A failed receive releases its key for a clean retry.
	_, err = svc.Receive(context.Background(), staff, 999, "key-2")
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.False(t, idem.keys["key-2"])
}

func TestBillLifecycle(t *testing.T) {
	svc, _, _ := testSetup()
	po := mustCreatePO(t, svc)
	bill, err := svc.Receive(context.Background(), staff, po.ID, "")
	require.NoError(t, err)

	// PENDING_DISPATCH cannot jump straight to PAID.
	_, err = svc.TransitionBill(context.Background(), staff, bill.ID, BillPaid)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)

	dispatched, err := svc.TransitionBill(context.Background(), staff, bill.ID, BillDispatched)
	require.NoError(t, err)
	require.Equal(t, BillDispatched, dispatched.Status)

	paid, err := svc.TransitionBill(context.Background(), staff, bill.ID, BillPaid)
	require.NoError(t, err)
	require.Equal(t, BillPaid, paid.Status)

	// PAID is terminal.
	_, err = svc.TransitionBill(context.Background(), staff, bill.ID, BillDispatched)
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}
