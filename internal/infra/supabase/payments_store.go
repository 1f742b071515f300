package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// pixChargeRow maps the pix_charges table.
type pixChargeRow struct {
	ID            string  `json:"id"`
	GatewayID     string  `json:"gateway_id"`
	OrderID       string  `json:"order_id"`
	CustomerID    string  `json:"customer_id"`
	AmountCents   int64   `json:"amount_cents"`
	Status        string  `json:"status"`
	QRCode        string  `json:"qr_code"`
	CopyPasteCode string  `json:"copy_paste_code"`
	ExpiresAt     string  `json:"expires_at"`
	CreatedAt     string  `json:"created_at"`
	PaidAt        *string `json:"paid_at"`
}

func (r *pixChargeRow) toDomain() domain.PixCharge {
	expiresAt, _ := time.Parse(time.RFC3339, r.ExpiresAt)
	createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
	charge := domain.PixCharge{
		ID:            r.ID,
		GatewayID:     r.GatewayID,
		OrderID:       r.OrderID,
		CustomerID:    r.CustomerID,
		AmountCents:   r.AmountCents,
		Status:        r.Status,
		QRCode:        r.QRCode,
		CopyPasteCode: r.CopyPasteCode,
		ExpiresAt:     expiresAt,
		CreatedAt:     createdAt,
	}
	if r.PaidAt != nil {
		if paidAt, err := time.Parse(time.RFC3339, *r.PaidAt); err == nil {
			charge.PaidAt = &paidAt
		}
	}
	return charge
}

// CreatePixCharge persists a charge created at the gateway.
func (c *Client) CreatePixCharge(ctx context.Context, charge *domain.PixCharge) (*domain.PixCharge, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePixCharge")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", charge.OrderID))

	var created *domain.PixCharge

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doPost(ctx, "pix_charges", map[string]any{
				"id":              charge.ID,
				"gateway_id":      charge.GatewayID,
				"order_id":        charge.OrderID,
				"customer_id":     charge.CustomerID,
				"amount_cents":    charge.AmountCents,
				"status":          charge.Status,
				"qr_code":         charge.QRCode,
				"copy_paste_code": charge.CopyPasteCode,
				"expires_at":      charge.ExpiresAt.UTC().Format(time.RFC3339),
			})
			if err != nil {
				return err
			}

			var rows []pixChargeRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode created charge: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("supabase returned no row for created charge")
			}

			ch := rows[0].toDomain()
			created = &ch
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/pix_charges", Err: err}
	}

	return created, nil
}

// GetPixCharge fetches a charge by its internal id.
func (c *Client) GetPixCharge(ctx context.Context, chargeID string) (*domain.PixCharge, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPixCharge")
	defer span.End()
	span.SetAttributes(attribute.String("charge.id", chargeID))

	path := fmt.Sprintf("pix_charges?id=eq.%s&limit=1", chargeID)
	return c.getCharge(ctx, path, chargeID)
}

// GetPixChargeByGatewayID fetches a charge by the gateway's identifier,
// used when matching webhook events to local charges.
func (c *Client) GetPixChargeByGatewayID(ctx context.Context, gatewayID string) (*domain.PixCharge, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPixChargeByGatewayID")
	defer span.End()
	span.SetAttributes(attribute.String("charge.gateway_id", gatewayID))

	path := fmt.Sprintf("pix_charges?gateway_id=eq.%s&limit=1", gatewayID)
	return c.getCharge(ctx, path, gatewayID)
}

// GetPendingPixCharge looks for a still-valid pending charge for the
// customer and order, so a retry reuses the existing QR code instead of
// creating a duplicate at the gateway.
func (c *Client) GetPendingPixCharge(ctx context.Context, customerID, orderID string, now time.Time) (*domain.PixCharge, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPendingPixCharge")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", customerID),
		attribute.String("order.id", orderID),
	)

	var charge *domain.PixCharge

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf(
				"pix_charges?customer_id=eq.%s&order_id=eq.%s&status=eq.%s&expires_at=gt.%s&order=created_at.desc&limit=1",
				customerID, orderID, domain.PixChargeStatusPending, now.UTC().Format(time.RFC3339),
			)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				charge = nil
				return nil
			}

			var rows []pixChargeRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode pending charge: %w", err)
			}
			if len(rows) == 0 {
				charge = nil
				return nil
			}

			ch := rows[0].toDomain()
			charge = &ch
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/pix_charges", Err: err}
	}

	return charge, nil
}

// UpdatePixChargeStatus transitions a charge; paidAt is set only when
// the gateway confirms payment.
func (c *Client) UpdatePixChargeStatus(ctx context.Context, chargeID, status string, paidAt *time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePixChargeStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("charge.id", chargeID),
		attribute.String("charge.status", status),
	)

	data := map[string]any{"status": status}
	if paidAt != nil {
		data["paid_at"] = paidAt.UTC().Format(time.RFC3339)
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("pix_charges?id=eq.%s", chargeID)
			body, err := c.doPatch(ctx, path, data)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "pix charge", ID: chargeID}
			}
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return notFound
		}
		return &domain.ErrExternalService{Service: "supabase/pix_charges", Err: err}
	}

	return nil
}

func (c *Client) getCharge(ctx context.Context, path, id string) (*domain.PixCharge, error) {
	var charge *domain.PixCharge

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "pix charge", ID: id}
			}

			var rows []pixChargeRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode charge: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "pix charge", ID: id}
			}

			ch := rows[0].toDomain()
			charge = &ch
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/pix_charges", Err: err}
	}

	return charge, nil
}
