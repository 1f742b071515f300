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

// orderRow maps the orders table. Items and shipping data are stored
// as jsonb columns: the shipping snapshot is immutable by contract, so
// it never needs relational access.
type orderRow struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	PlanID       string          `json:"plan_id"`
	Status       string          `json:"status"`
	ItemsCents   int64           `json:"items_cents"`
	FreightCents int64           `json:"freight_cents"`
	TotalCents   int64           `json:"total_cents"`
	Items        json.RawMessage `json:"items"`
	ShippingData json.RawMessage `json:"shipping_data"`
	CreatedAt    string          `json:"created_at"`
}

func (r *orderRow) toDomain() (domain.Order, error) {
	createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
	order := domain.Order{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		PlanID:       r.PlanID,
		Status:       r.Status,
		ItemsCents:   r.ItemsCents,
		FreightCents: r.FreightCents,
		TotalCents:   r.TotalCents,
		CreatedAt:    createdAt,
	}
	if len(r.Items) > 0 && string(r.Items) != "null" {
		if err := json.Unmarshal(r.Items, &order.Items); err != nil {
			return order, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	if len(r.ShippingData) > 0 && string(r.ShippingData) != "null" {
		var sd domain.OrderShippingData
		if err := json.Unmarshal(r.ShippingData, &sd); err != nil {
			return order, fmt.Errorf("failed to decode shipping data: %w", err)
		}
		order.ShippingData = &sd
	}
	return order, nil
}

// CreateOrder inserts an order with its immutable shipping snapshot.
func (c *Client) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", order.CustomerID))

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order items: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipping data: %w", err)
	}

	var created *domain.Order

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doPost(ctx, "orders", map[string]any{
				"id":            order.ID,
				"customer_id":   order.CustomerID,
				"plan_id":       order.PlanID,
				"status":        order.Status,
				"items_cents":   order.ItemsCents,
				"freight_cents": order.FreightCents,
				"total_cents":   order.TotalCents,
				"items":         json.RawMessage(itemsJSON),
				"shipping_data": json.RawMessage(shippingJSON),
			})
			if err != nil {
				return err
			}

			var rows []orderRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode created order: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("supabase returned no row for created order")
			}

			o, err := rows[0].toDomain()
			if err != nil {
				return err
			}
			created = &o
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	return created, nil
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var order *domain.Order

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("orders?id=eq.%s&limit=1", orderID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "order", ID: orderID}
			}

			var rows []orderRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode order: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "order", ID: orderID}
			}

			o, err := rows[0].toDomain()
			if err != nil {
				return err
			}
			order = &o
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	return order, nil
}

// ListOrders returns a customer's orders, newest first.
func (c *Client) ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrders")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var orders []domain.Order

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			offset := (page - 1) * pageSize
			path := fmt.Sprintf("orders?customer_id=eq.%s&order=created_at.desc&limit=%d&offset=%d", customerID, pageSize, offset)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				orders = []domain.Order{}
				return nil
			}

			var rows []orderRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode orders: %w", err)
			}

			orders = make([]domain.Order, 0, len(rows))
			for i := range rows {
				o, err := rows[i].toDomain()
				if err != nil {
					return err
				}
				orders = append(orders, o)
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	return orders, nil
}

// UpdateOrderStatus moves an order through its lifecycle. The shipping
// snapshot column is deliberately never touched here.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	)

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("orders?id=eq.%s", orderID)
			body, err := c.doPatch(ctx, path, map[string]any{"status": status})
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "order", ID: orderID}
			}
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return notFound
		}
		return &domain.ErrExternalService{Service: "supabase/orders", Err: err}
	}

	return nil
}
