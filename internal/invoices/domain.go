// Package invoices turns approved orders into invoices and tracks their
// settlement status as payments arrive.
package invoices

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Status is the invoice settlement state.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusUnpaid  Status = "UNPAID"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// StatusForPaid derives the settlement status from the paid amount. A fully
// covered balance is PAID, anything in between PARTIAL, an untouched invoice
// UNPAID. The comparison runs on the rounded balance, not the raw float sum,
// so accumulated payments that cover the total to the cent settle the
// invoice even when their binary sum falls a hair short.
func StatusForPaid(paid, total float64) Status {
	switch {
	case paid <= 0:
		return StatusUnpaid
	case RemainingBalance(total, paid) <= 0:
		return StatusPaid
	default:
		return StatusPartial
	}
}

// TransitionError builds the standard invalid-transition error.
func TransitionError(from, to Status) error {
	return fmt.Errorf("%w: invoice cannot move from %s to %s", httpx.ErrInvalidTransition, from, to)
}

// Invoice bills a single order. OrderID is unique: one invoice per order.
// The monetary identities total = subtotal - discount + gst and
// balance = total - paid hold on every persisted row.
type Invoice struct {
	ID              int64         `json:"id"`
	InvoiceNumber   string        `json:"invoice_number"`
	OrderID         int64         `json:"order_id"`
	StoreID         int64         `json:"store_id"`
	Subtotal        float64       `json:"subtotal"`
	DiscountPercent float64       `json:"discount_percent"`
	DiscountAmount  float64       `json:"discount_amount"`
	GSTAmount       float64       `json:"gst_amount"`
	TotalAmount     float64       `json:"total_amount"`
	PaidAmount      float64       `json:"paid_amount"`
	BalanceAmount   float64       `json:"balance_amount"`
	Status          Status        `json:"status"`
	DueDate         time.Time     `json:"due_date"`
	Items           []InvoiceItem `json:"items,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID              int64   `json:"id"`
	InvoiceID       int64   `json:"invoice_id"`
	ProductID       int64   `json:"product_id"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	GSTPercent      float64 `json:"gst_percent"`
	GSTAmount       float64 `json:"gst_amount"`
	Total           float64 `json:"total"`
}
