// Package inventory tracks raw-material stock through an append-only
// movement ledger. Stock never mutates except alongside a movement row.
package inventory

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// MovementType classifies a ledger entry.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// RawMaterial is a procured input tracked by the ledger.
type RawMaterial struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	CurrentStock float64   `json:"current_stock"`
	MinStock     float64   `json:"min_stock"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Movement is one ledger entry. For ADJUSTMENT the quantity is a signed
// delta; IN and OUT quantities are positive.
type Movement struct {
	ID            int64        `json:"id"`
	RawMaterialID int64        `json:"raw_material_id"`
	Type          MovementType `json:"type"`
	Quantity      float64      `json:"quantity"`
	Reference     string       `json:"reference,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	CreatedBy     int64        `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NextStock computes the stock level after applying a movement. A movement
// that would push stock below zero is rejected with InsufficientStock.
func NextStock(current float64, typ MovementType, quantity float64) (float64, error) {
	var next float64
	switch typ {
	case MovementIn:
		if quantity <= 0 {
			return 0, fmt.Errorf("%w: IN quantity must be positive", httpx.ErrValidation)
		}
		next = current + quantity
	case MovementOut:
		if quantity <= 0 {
			return 0, fmt.Errorf("%w: OUT quantity must be positive", httpx.ErrValidation)
		}
		next = current - quantity
	case MovementAdjustment:
		next = current + quantity
	default:
		return 0, fmt.Errorf("%w: unknown movement type %q", httpx.ErrValidation, typ)
	}
	if next < 0 {
		return 0, fmt.Errorf("%w: movement would take stock to %.2f", httpx.ErrInsufficientStock, next)
	}
	return next, nil
}
