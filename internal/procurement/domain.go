// Package procurement covers purchase orders placed on vendors, goods
// receipt into the raw-material ledger and the vendor bills raised on
// receipt.
package procurement

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// POStatus is the purchase order state. A PO is received exactly once.
type POStatus string

const (
	POPending       POStatus = "PENDING"
	POReachedOffice POStatus = "REACHED_OFFICE"
)

// BillStatus is the vendor bill settlement state.
type BillStatus string

const (
	BillPendingDispatch BillStatus = "PENDING_DISPATCH"
	BillDispatched      BillStatus = "DISPATCHED"
	BillPaid            BillStatus = "PAID"
)

// billTransitions is the vendor bill state machine.
var billTransitions = map[BillStatus][]BillStatus{
	BillPendingDispatch: {BillDispatched},
	BillDispatched:      {BillPaid},
	BillPaid:            {},
}

// CanTransitionBill reports whether a bill may move from→to.
func CanTransitionBill(from, to BillStatus) bool {
	for _, next := range billTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BillTransitionError builds the standard invalid-transition error.
func BillTransitionError(from, to BillStatus) error {
	return fmt.Errorf("%w: vendor bill cannot move from %s to %s", httpx.ErrInvalidTransition, from, to)
}

// PurchaseOrder requests raw materials from a vendor.
type PurchaseOrder struct {
	ID          int64               `json:"id"`
	PONumber    string              `json:"po_number"`
	VendorID    int64               `json:"vendor_id"`
	CreatedBy   int64               `json:"created_by"`
	Status      POStatus            `json:"status"`
	TotalAmount float64             `json:"total_amount"`
	Notes       string              `json:"notes,omitempty"`
	Items       []PurchaseOrderItem `json:"items,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// PurchaseOrderItem is one raw-material line.
type PurchaseOrderItem struct {
	ID              int64   `json:"id"`
	PurchaseOrderID int64   `json:"purchase_order_id"`
	RawMaterialID   int64   `json:"raw_material_id"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	Total           float64 `json:"total"`
}

// VendorBill is raised for the full PO amount when goods are received.
type VendorBill struct {
	ID              int64      `json:"id"`
	BillNumber      string     `json:"bill_number"`
	PurchaseOrderID int64      `json:"purchase_order_id"`
	VendorID        int64      `json:"vendor_id"`
	Amount          float64    `json:"amount"`
	Status          BillStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
