package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// memoryRepo implements Repository and TxRepository over maps. The fake runs
// the closure directly; atomicity is what the real repository provides, the
// arithmetic under test lives in the service.
type memoryRepo struct {
	nextID   int64
	payments map[int64]*Payment
	invoices map[int64]*InvoiceBalance
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{payments: map[int64]*Payment{}, invoices: map[int64]*InvoiceBalance{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) GetInvoiceForUpdate(_ context.Context, invoiceID int64) (InvoiceBalance, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return InvoiceBalance{}, httpx.ErrNotFound
	}
	return *inv, nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, p *Payment) error {
	m.nextID++
	p.ID = m.nextID
	p.PaymentNumber = "PAY-TEST"
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memoryRepo) GetPayment(_ context.Context, id int64) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) DeletePayment(_ context.Context, id int64) error {
	if _, ok := m.payments[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

func (m *memoryRepo) UpdateInvoicePaid(_ context.Context, invoiceID int64, paid, _ float64, status string) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return httpx.ErrNotFound
	}
	inv.PaidAmount = paid
	inv.Status = status
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Payment, error) {
	return m.GetPayment(ctx, id)
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if filter.InvoiceID != 0 && p.InvoiceID != filter.InvoiceID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

var staff = shared.Actor{ID: 7, Role: shared.RoleStaff}

func testSetup() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	repo.invoices[1] = &InvoiceBalance{
		InvoiceID:   1,
		StoreID:     5,
		TotalAmount: 1062,
		PaidAmount:  0,
		Status:      string(invoices.StatusUnpaid),
	}
	return NewService(repo, nil, nil), repo
}

func TestPartialThenFullPayment(t *testing.T) {
	svc, repo := testSetup()

	first, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 600, PaymentMode: "CASH"})
	require.NoError(t, err)
	require.Equal(t, int64(7), first.CollectedBy)
	require.Equal(t, 600.0, repo.invoices[1].PaidAmount)
	require.Equal(t, string(invoices.StatusPartial), repo.invoices[1].Status)
	require.Equal(t, 462.0, repo.invoices[1].Balance())

	_, err = svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 462, PaymentMode: "UPI"})
	require.NoError(t, err)
	require.Equal(t, 1062.0, repo.invoices[1].PaidAmount)
	require.Equal(t, string(invoices.StatusPaid), repo.invoices[1].Status)
	require.Equal(t, 0.0, repo.invoices[1].Balance())
}

func TestCentPaymentsSettleInvoice(t *testing.T) {
	svc, repo := testSetup()
	repo.invoices[1].TotalAmount = 1000.07

	// 1000.01 + 0.06 sums to slightly under 1000.07 in binary floats; the
	// rounded balance still reaches zero and the invoice must settle.
	_, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 1000.01, PaymentMode: "CASH"})
	require.NoError(t, err)
	require.Equal(t, string(invoices.StatusPartial), repo.invoices[1].Status)

	_, err = svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 0.06, PaymentMode: "CASH"})
	require.NoError(t, err)
	require.Equal(t, string(invoices.StatusPaid), repo.invoices[1].Status)
	require.Equal(t, 0.0, invoices.RemainingBalance(repo.invoices[1].TotalAmount, repo.invoices[1].PaidAmount))
}

func TestRejectNonPositiveAmount(t *testing.T) {
	svc, _ := testSetup()

	_, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 0, PaymentMode: "CASH"})
	require.ErrorIs(t, err, httpx.ErrNonPositiveAmount)

	_, err = svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: -10, PaymentMode: "CASH"})
	require.ErrorIs(t, err, httpx.ErrNonPositiveAmount)
}

func TestRejectAmountExceedingBalance(t *testing.T) {
	svc, repo := testSetup()

	_, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 2000, PaymentMode: "CASH"})
	require.ErrorIs(t, err, httpx.ErrExceedsBalance)
	require.Equal(t, 0.0, repo.invoices[1].PaidAmount)

	// After a partial payment only the remainder is acceptable.
	_, err = svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 1000, PaymentMode: "CASH"})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 100, PaymentMode: "CASH"})
	require.ErrorIs(t, err, httpx.ErrExceedsBalance)
}

func TestRejectDraftInvoice(t *testing.T) {
	svc, repo := testSetup()
	repo.invoices[1].Status = string(invoices.StatusDraft)

	_, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 100, PaymentMode: "CASH"})
	require.ErrorIs(t, err, httpx.ErrInvalidTransition)
}

func TestDeleteReversesPayment(t *testing.T) {
	svc, repo := testSetup()

	payment, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 600, PaymentMode: "CASH"})
	require.NoError(t, err)
	require.Equal(t, string(invoices.StatusPartial), repo.invoices[1].Status)

	require.NoError(t, svc.Delete(context.Background(), staff, payment.ID))
	require.Equal(t, 0.0, repo.invoices[1].PaidAmount)
	require.Equal(t, 1062.0, repo.invoices[1].Balance())
	require.Equal(t, string(invoices.StatusUnpaid), repo.invoices[1].Status)

	_, err = svc.Get(context.Background(), payment.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteRestoresPartialStatus(t *testing.T) {
	svc, repo := testSetup()

	_, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 600, PaymentMode: "CASH"})
	require.NoError(t, err)
	second, err := svc.Record(context.Background(), staff, RecordInput{InvoiceID: 1, Amount: 462, PaymentMode: "CASH"})
	require.NoError(t, err)
	require.Equal(t, string(invoices.StatusPaid), repo.invoices[1].Status)

	// Reversing the second payment lands back on PARTIAL with the original
	// outstanding balance.
	require.NoError(t, svc.Delete(context.Background(), staff, second.ID))
	require.Equal(t, 600.0, repo.invoices[1].PaidAmount)
	require.Equal(t, 462.0, repo.invoices[1].Balance())
	require.Equal(t, string(invoices.StatusPartial), repo.invoices[1].Status)
}
