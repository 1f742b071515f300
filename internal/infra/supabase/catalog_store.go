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

// productRow maps the products table.
type productRow struct {
	ID                string `json:"id"`
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	PriceCents        int64  `json:"price_cents"`
	ShippingProfileID string `json:"shipping_profile_id"`
	IsActive          bool   `json:"is_active"`
	CreatedAt         string `json:"created_at"`
}

func (r *productRow) toDomain() domain.Product {
	createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.Product{
		ID:                r.ID,
		Slug:              r.Slug,
		Name:              r.Name,
		Description:       r.Description,
		PriceCents:        r.PriceCents,
		ShippingProfileID: r.ShippingProfileID,
		IsActive:          r.IsActive,
		CreatedAt:         createdAt,
	}
}

// planRow maps the plans table.
type planRow struct {
	ID                string `json:"id"`
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	PriceCents        int64  `json:"price_cents"`
	IntervalMonths    int    `json:"interval_months"`
	ShippingProfileID string `json:"shipping_profile_id"`
	IsActive          bool   `json:"is_active"`
	CreatedAt         string `json:"created_at"`
}

func (r *planRow) toDomain() domain.Plan {
	createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.Plan{
		ID:                r.ID,
		Slug:              r.Slug,
		Name:              r.Name,
		Description:       r.Description,
		PriceCents:        r.PriceCents,
		IntervalMonths:    r.IntervalMonths,
		ShippingProfileID: r.ShippingProfileID,
		IsActive:          r.IsActive,
		CreatedAt:         createdAt,
	}
}

// GetProduct fetches one active product by id.
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	var product *domain.Product

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("products?id=eq.%s&limit=1", productID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "product", ID: productID}
			}

			var rows []productRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode product: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "product", ID: productID}
			}

			p := rows[0].toDomain()
			product = &p
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}

	return product, nil
}

// ListProducts returns active products, newest first.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProducts")
	defer span.End()

	var products []domain.Product

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doGet(ctx, "products?is_active=eq.true&order=created_at.desc")
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				products = []domain.Product{}
				return nil
			}

			var rows []productRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode products: %w", err)
			}

			products = make([]domain.Product, 0, len(rows))
			for i := range rows {
				products = append(products, rows[i].toDomain())
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/products", Err: err}
	}

	return products, nil
}

// GetPlan fetches one plan by id.
func (c *Client) GetPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPlan")
	defer span.End()
	span.SetAttributes(attribute.String("plan.id", planID))

	var plan *domain.Plan

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("plans?id=eq.%s&limit=1", planID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "plan", ID: planID}
			}

			var rows []planRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode plan: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "plan", ID: planID}
			}

			p := rows[0].toDomain()
			plan = &p
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/plans", Err: err}
	}

	return plan, nil
}

// ListPlans returns active plans, newest first.
func (c *Client) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPlans")
	defer span.End()

	var plans []domain.Plan

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doGet(ctx, "plans?is_active=eq.true&order=created_at.desc")
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				plans = []domain.Plan{}
				return nil
			}

			var rows []planRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode plans: %w", err)
			}

			plans = make([]domain.Plan, 0, len(rows))
			for i := range rows {
				plans = append(plans, rows[i].toDomain())
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/plans", Err: err}
	}

	return plans, nil
}
