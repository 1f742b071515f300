package domain

import "time"

// Product is a physical item in the storefront catalog. Each product
// carries its own shipping profile reference; when it has none the
// store falls back to the default profile configured by the admin.
type Product struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	PriceCents        int64     `json:"price_cents"`
	ShippingProfileID string    `json:"shipping_profile_id,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Plan is a recurring subscription plan. Plans that ship a physical
// box reference a shipping profile; digital-only plans have none.
type Plan struct {
	ID                string    `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	PriceCents        int64     `json:"price_cents"`
	IntervalMonths    int       `json:"interval_months"`
	ShippingProfileID string    `json:"shipping_profile_id,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}
