package domain

import "time"

// ShippingProfile is a reusable weight/dimensions template an
// administrator attaches to products or subscription plans. Products
// and plans reference profiles; they never own them.
type ShippingProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	WeightKg  float64   `json:"weight_kg"`
	WidthCm   int       `json:"width_cm"`
	HeightCm  int       `json:"height_cm"`
	LengthCm  int       `json:"length_cm"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxProfileWeightKg and MaxProfileDimensionCm bound what an admin can
// store in a profile; the same bounds cap combined multi-product parcels.
const (
	MaxProfileWeightKg    = 30.0
	MaxProfileDimensionCm = 100
)

// ShippingProfileUsage is a profile plus how many products/plans
// currently reference it (admin list screen).
type ShippingProfileUsage struct {
	ShippingProfile
	ProductCount int `json:"product_count"`
	PlanCount    int `json:"plan_count"`
}

// CreateShippingProfileRequest is the admin create payload.
type CreateShippingProfileRequest struct {
	Name     string  `json:"name"`
	WeightKg float64 `json:"weight_kg"`
	WidthCm  int     `json:"width_cm"`
	HeightCm int     `json:"height_cm"`
	LengthCm int     `json:"length_cm"`
}

// Dimensions describes a parcel in centimeters.
type Dimensions struct {
	WidthCm  int `json:"width_cm"`
	HeightCm int `json:"height_cm"`
	LengthCm int `json:"length_cm"`
}

// QuoteRequest asks for shipping options to a destination CEP.
// Exactly one cargo source must be set: ShippingProfileID, ProductIDs
// or PlanID.
type QuoteRequest struct {
	DestinationCEP    string   `json:"cep"`
	ShippingProfileID string   `json:"shipping_profile_id,omitempty"`
	ProductIDs        []string `json:"product_ids,omitempty"`
	PlanID            string   `json:"plan_id,omitempty"`
}

// QuoteOption is one carrier offer. Ephemeral: nothing is persisted
// until the customer selects an option at checkout.
type QuoteOption struct {
	OptionID     string  `json:"option_id"`
	Carrier      string  `json:"carrier"`
	Service      string  `json:"service"`
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"delivery_days"`
}

// Cargo is the resolved weight/dimensions the rate table prices.
type Cargo struct {
	WeightKg   float64
	Dimensions Dimensions
}

// OrderShippingData snapshots the selected option onto an order at
// checkout time. Immutable afterwards: it is the audit trail proving
// the stored price traces back to an option the calculator offered.
type OrderShippingData struct {
	OptionID              string     `json:"option_id"`
	Carrier               string     `json:"carrier"`
	Service               string     `json:"service"`
	Price                 float64    `json:"price"`
	DeliveryDays          int        `json:"delivery_days"`
	DestinationZipCode    string     `json:"destination_zip_code"`
	OriginZipCode         string     `json:"origin_zip_code"`
	TotalWeightKg         float64    `json:"total_weight_kg"`
	Dimensions            Dimensions `json:"dimensions"`
	QuotedAt              time.Time  `json:"quoted_at"`
	EstimatedDeliveryDate string     `json:"estimated_delivery_date,omitempty"`
}

// ShippingMetrics is the JSON snapshot served by /v1/metrics/shipping.
type ShippingMetrics struct {
	TotalQuotes     int64   `json:"total_quotes"`
	ErrorRate       float64 `json:"error_rate"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	AvgOptionsCount float64 `json:"avg_options_count"`
	Period          string  `json:"period"`
}
