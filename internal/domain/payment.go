package domain

import "time"

// PIX charge statuses as reported by the payment gateway.
const (
	PixChargeStatusPending  = "pending"
	PixChargeStatusPaid     = "paid"
	PixChargeStatusExpired  = "expired"
	PixChargeStatusRefunded = "refunded"
)

// PixCharge is a QR-code payment created at the gateway for an order.
// A pending charge is reusable until ExpiresAt: asking to pay the same
// order again returns the existing charge instead of creating a new one.
type PixCharge struct {
	ID            string    `json:"id"`
	GatewayID     string    `json:"gateway_id"`
	OrderID       string    `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	AmountCents   int64     `json:"amount_cents"`
	Status        string    `json:"status"`
	QRCode        string    `json:"qr_code"`
	CopyPasteCode string    `json:"copy_paste_code"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// CreatePixChargeRequest asks the payments service for a charge.
type CreatePixChargeRequest struct {
	OrderID string `json:"order_id"`
}

// GatewayCharge is what the payment gateway returns on charge creation.
type GatewayCharge struct {
	GatewayID     string
	QRCode        string
	CopyPasteCode string
	ExpiresAt     time.Time
}

// PaymentWebhookEvent is the gateway's charge-status notification.
type PaymentWebhookEvent struct {
	Event     string `json:"event"`
	GatewayID string `json:"gateway_id"`
	Status    string `json:"status"`
	PaidAt    string `json:"paid_at,omitempty"`
}
