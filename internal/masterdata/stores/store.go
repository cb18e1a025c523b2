// Package stores manages retail store master data. Each store carries a
// default margin percent used as the invoice discount when no per-product
// override is supplied.
package stores

import "time"

// Store is a retail location supplied by the central office.
type Store struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	MarginPercent float64   `json:"margin_percent"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
