package invoices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeLine(t *testing.T) {
	// 10 units at 100.00 with 10% discount and 18% GST.
	line := ComputeLine(LineInput{Quantity: 10, Price: 100, DiscountPercent: 10, GSTPercent: 18})
	require.Equal(t, 1000.0, line.Subtotal)
	require.Equal(t, 100.0, line.DiscountAmount)
	require.Equal(t, 900.0, line.Taxable)
	require.Equal(t, 162.0, line.GSTAmount)
	require.Equal(t, 1062.0, line.Total)
}

func TestComputeLineRounding(t *testing.T) {
	// 3 units at 33.33 with 7.5% discount and 12% GST: every derived figure
	// lands on exactly two decimal places.
	line := ComputeLine(LineInput{Quantity: 3, Price: 33.33, DiscountPercent: 7.5, GSTPercent: 12})
	require.Equal(t, 99.99, line.Subtotal)
	require.Equal(t, 7.5, line.DiscountAmount)
	require.Equal(t, 92.49, line.Taxable)
	require.Equal(t, 11.1, line.GSTAmount)
	require.Equal(t, 103.59, line.Total)
}

func TestComputeLineZeroDiscount(t *testing.T) {
	line := ComputeLine(LineInput{Quantity: 2, Price: 250, DiscountPercent: 0, GSTPercent: 5})
	require.Equal(t, 500.0, line.Subtotal)
	require.Equal(t, 0.0, line.DiscountAmount)
	require.Equal(t, 25.0, line.GSTAmount)
	require.Equal(t, 525.0, line.Total)
}

func TestComputeTotalsIdentity(t *testing.T) {
	lines := []LineResult{
		ComputeLine(LineInput{Quantity: 10, Price: 100, DiscountPercent: 10, GSTPercent: 18}),
		ComputeLine(LineInput{Quantity: 4, Price: 50, DiscountPercent: 5, GSTPercent: 12}),
	}
	totals := ComputeTotals(lines)
	require.Equal(t, 1200.0, totals.Subtotal)
	require.Equal(t, 110.0, totals.DiscountAmount)
	require.Equal(t, 184.8, totals.GSTAmount)
	// total = subtotal - discount + gst
	require.Equal(t, totals.Subtotal-totals.DiscountAmount+totals.GSTAmount, totals.TotalAmount)
	require.Equal(t, 1274.8, totals.TotalAmount)
}

func TestStatusForPaid(t *testing.T) {
	require.Equal(t, StatusUnpaid, StatusForPaid(0, 1062))
	require.Equal(t, StatusPartial, StatusForPaid(600, 1062))
	require.Equal(t, StatusPaid, StatusForPaid(1062, 1062))

	// Accumulated floats fall a hair short of the total while the rounded
	// balance is zero; the invoice is still settled.
	first, second := 1000.01, 0.06
	paid := first + second
	require.Less(t, paid, 1000.07)
	require.Equal(t, 0.0, RemainingBalance(1000.07, paid))
	require.Equal(t, StatusPaid, StatusForPaid(paid, 1000.07))
}
