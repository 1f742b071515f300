package domain

import "time"

// Order statuses.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusShipped        = "shipped"
	OrderStatusCancelled      = "cancelled"
)

// OrderItem is one product line on an order.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Order is a completed checkout. ShippingData is written once at
// creation and never updated.
type Order struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	Items        []OrderItem        `json:"items,omitempty"`
	PlanID       string             `json:"plan_id,omitempty"`
	Status       string             `json:"status"`
	ItemsCents   int64              `json:"items_cents"`
	FreightCents int64              `json:"freight_cents"`
	TotalCents   int64              `json:"total_cents"`
	ShippingData *OrderShippingData `json:"shipping_data,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// CheckoutRequest creates an order from either a product list or a
// plan, plus the shipping option the customer selected from a quote.
type CheckoutRequest struct {
	ProductIDs       []string `json:"product_ids,omitempty"`
	PlanID           string   `json:"plan_id,omitempty"`
	DestinationCEP   string   `json:"cep"`
	SelectedOptionID string   `json:"selected_option_id"`
}
