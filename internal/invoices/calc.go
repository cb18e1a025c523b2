package invoices

import "github.com/shopspring/decimal"

// Line computation runs on decimals and rounds each derived figure to two
// places, so a 10-unit line at 100.00 with 10% discount and 18% GST always
// yields 1000.00 / 100.00 / 900.00 / 162.00 / 1062.00 regardless of float
// representation at the model edge.

// LineInput feeds one line into the billing computation.
type LineInput struct {
	Quantity        float64
	Price           float64
	DiscountPercent float64
	GSTPercent      float64
}

// LineResult is the rounded outcome for one line.
type LineResult struct {
	Subtotal       float64
	DiscountAmount float64
	Taxable        float64
	GSTAmount      float64
	Total          float64
}

// Totals aggregates line results into invoice headline figures.
type Totals struct {
	Subtotal       float64
	DiscountAmount float64
	GSTAmount      float64
	TotalAmount    float64
}

var hundred = decimal.NewFromInt(100)

// ComputeLine derives one line's amounts. Discount applies to the line
// subtotal, GST to the discounted figure.
func ComputeLine(in LineInput) LineResult {
	qty := decimal.NewFromFloat(in.Quantity)
	price := decimal.NewFromFloat(in.Price)

	subtotal := qty.Mul(price).Round(2)
	discount := subtotal.Mul(decimal.NewFromFloat(in.DiscountPercent)).Div(hundred).Round(2)
	taxable := subtotal.Sub(discount)
	gst := taxable.Mul(decimal.NewFromFloat(in.GSTPercent)).Div(hundred).Round(2)
	total := taxable.Add(gst)

	return LineResult{
		Subtotal:       subtotal.InexactFloat64(),
		DiscountAmount: discount.InexactFloat64(),
		Taxable:        taxable.InexactFloat64(),
		GSTAmount:      gst.InexactFloat64(),
		Total:          total.InexactFloat64(),
	}
}

// ComputeTotals sums line results. totalAmount = subtotal - discount + gst.
func ComputeTotals(lines []LineResult) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	gst := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(line.Subtotal))
		discount = discount.Add(decimal.NewFromFloat(line.DiscountAmount))
		gst = gst.Add(decimal.NewFromFloat(line.GSTAmount))
	}
	total := subtotal.Sub(discount).Add(gst)
	return Totals{
		Subtotal:       subtotal.InexactFloat64(),
		DiscountAmount: discount.InexactFloat64(),
		GSTAmount:      gst.InexactFloat64(),
		TotalAmount:    total.InexactFloat64(),
	}
}

// RemainingBalance computes total - paid rounded to two places, floored at
// zero from the caller's perspective only when explicitly requested.
func RemainingBalance(total, paid float64) float64 {
	return decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(paid)).Round(2).InexactFloat64()
}
