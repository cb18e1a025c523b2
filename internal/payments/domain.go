// Package payments records settlements against invoices and keeps the
// invoice paid/balance figures consistent under concurrent collection.
package payments

import "time"

// Payment is one settlement against an invoice.
type Payment struct {
	ID            int64     `json:"id"`
	PaymentNumber string    `json:"payment_number"`
	InvoiceID     int64     `json:"invoice_id"`
	StoreID       int64     `json:"store_id"`
	CollectedBy   int64     `json:"collected_by"`
	Amount        float64   `json:"amount"`
	PaymentMode   string    `json:"payment_mode"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// InvoiceBalance is the locked snapshot of an invoice's monetary state read
// at the start of a payment transaction.
type InvoiceBalance struct {
	InvoiceID   int64
	StoreID     int64
	TotalAmount float64
	PaidAmount  float64
	Status      string
}

// Balance is total minus paid.
func (b InvoiceBalance) Balance() float64 {
	return b.TotalAmount - b.PaidAmount
}
