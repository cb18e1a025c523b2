// Package orders implements the sales order lifecycle: stores draft orders
// for products, submit them for review, and an admin approves them ahead of
// invoicing.
package orders

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusInvoiced  Status = "INVOICED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the full state machine. INVOICED and CANCELLED are terminal.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusInvoiced, StatusCancelled},
	StatusInvoiced:  {},
	StatusCancelled: {},
}

// CanTransition reports whether from→to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError builds the standard invalid-transition error naming both
// endpoints of the rejected move.
func TransitionError(from, to Status) error {
	return fmt.Errorf("%w: order cannot move from %s to %s", httpx.ErrInvalidTransition, from, to)
}

// Order is a store's request for products.
type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	StoreID     int64       `json:"store_id"`
	CreatedBy   int64       `json:"created_by"`
	Status      Status      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	Notes       string      `json:"notes,omitempty"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderItem is one product line. Total is always quantity*price.
type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
	// AvailableQuantity is the shelf stock the field staff observed when
	// taking the order, when they recorded one.
	AvailableQuantity *float64 `json:"available_quantity,omitempty"`
}
