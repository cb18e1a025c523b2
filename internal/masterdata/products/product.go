// Package products manages sellable product master data, including the unit
// price and GST percent consumed by order and invoice computation.
package products

import "time"

// Product is a sellable item.
type Product struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
	Price      float64   `json:"price"`
	GSTPercent float64   `json:"gst_percent"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
