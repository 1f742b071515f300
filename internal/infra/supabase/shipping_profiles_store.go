package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// shippingProfileRow maps the shipping_profiles table.
type shippingProfileRow struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	WeightKg  float64 `json:"weight_kg"`
	WidthCm   int     `json:"width_cm"`
	HeightCm  int     `json:"height_cm"`
	LengthCm  int     `json:"length_cm"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func (r *shippingProfileRow) toDomain() domain.ShippingProfile {
	createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, r.UpdatedAt)
	return domain.ShippingProfile{
		ID:        r.ID,
		Name:      r.Name,
		WeightKg:  r.WeightKg,
		WidthCm:   r.WidthCm,
		HeightCm:  r.HeightCm,
		LengthCm:  r.LengthCm,
		IsActive:  r.IsActive,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// GetShippingProfile fetches one profile by id.
func (c *Client) GetShippingProfile(ctx context.Context, profileID string) (*domain.ShippingProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetShippingProfile")
	defer span.End()
	span.SetAttributes(attribute.String("shipping_profile.id", profileID))

	var profile *domain.ShippingProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("shipping_profiles?id=eq.%s&limit=1", profileID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "shipping profile", ID: profileID}
			}

			var rows []shippingProfileRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode shipping profile: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "shipping profile", ID: profileID}
			}

			p := rows[0].toDomain()
			profile = &p
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/shipping_profiles", Err: err}
	}

	return profile, nil
}

// ListShippingProfiles returns every profile, newest first.
func (c *Client) ListShippingProfiles(ctx context.Context) ([]domain.ShippingProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListShippingProfiles")
	defer span.End()

	var profiles []domain.ShippingProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doGet(ctx, "shipping_profiles?order=created_at.desc")
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				profiles = []domain.ShippingProfile{}
				return nil
			}

			var rows []shippingProfileRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode shipping profiles: %w", err)
			}

			profiles = make([]domain.ShippingProfile, 0, len(rows))
			for i := range rows {
				profiles = append(profiles, rows[i].toDomain())
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/shipping_profiles", Err: err}
	}

	return profiles, nil
}

// ListShippingProfileUsage returns profiles annotated with how many
// products and plans reference each one.
func (c *Client) ListShippingProfileUsage(ctx context.Context) ([]domain.ShippingProfileUsage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListShippingProfileUsage")
	defer span.End()

	profiles, err := c.ListShippingProfiles(ctx)
	if err != nil {
		return nil, err
	}

	type refRow struct {
		ShippingProfileID string `json:"shipping_profile_id"`
	}

	countRefs := func(table string) (map[string]int, error) {
		body, err := c.doGet(ctx, fmt.Sprintf("%s?select=shipping_profile_id&shipping_profile_id=not.is.null", table))
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		if body == nil || string(body) == "[]" {
			return counts, nil
		}
		var rows []refRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode %s refs: %w", table, err)
		}
		for _, r := range rows {
			counts[r.ShippingProfileID]++
		}
		return counts, nil
	}

	var productCounts, planCounts map[string]int
	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			if productCounts, err = countRefs("products"); err != nil {
				return err
			}
			planCounts, err = countRefs("plans")
			return err
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/shipping_profiles", Err: err}
	}

	usage := make([]domain.ShippingProfileUsage, 0, len(profiles))
	for _, p := range profiles {
		usage = append(usage, domain.ShippingProfileUsage{
			ShippingProfile: p,
			ProductCount:    productCounts[p.ID],
			PlanCount:       planCounts[p.ID],
		})
	}
	return usage, nil
}

// CreateShippingProfile inserts a new profile (active by default).
func (c *Client) CreateShippingProfile(ctx context.Context, req *domain.CreateShippingProfileRequest) (*domain.ShippingProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateShippingProfile")
	defer span.End()

	var profile *domain.ShippingProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doPost(ctx, "shipping_profiles", map[string]any{
				"name":      req.Name,
				"weight_kg": req.WeightKg,
				"width_cm":  req.WidthCm,
				"height_cm": req.HeightCm,
				"length_cm": req.LengthCm,
				"is_active": true,
			})
			if err != nil {
				return err
			}

			var rows []shippingProfileRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode created profile: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("supabase returned no row for created profile")
			}

			p := rows[0].toDomain()
			profile = &p
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/shipping_profiles", Err: err}
	}

	return profile, nil
}

// SetShippingProfileActive flips the is_active flag.
func (c *Client) SetShippingProfileActive(ctx context.Context, profileID string, active bool) (*domain.ShippingProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SetShippingProfileActive")
	defer span.End()
	span.SetAttributes(attribute.String("shipping_profile.id", profileID))

	var profile *domain.ShippingProfile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("shipping_profiles?id=eq.%s", profileID)
			body, err := c.doPatch(ctx, path, map[string]any{
				"is_active":  active,
				"updated_at": time.Now().UTC().Format(time.RFC3339),
			})
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "shipping profile", ID: profileID}
			}

			var rows []shippingProfileRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode updated profile: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "shipping profile", ID: profileID}
			}

			p := rows[0].toDomain()
			profile = &p
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/shipping_profiles", Err: err}
	}

	return profile, nil
}

// errAsNotFound surfaces a domain.ErrNotFound from a breaker/retry chain
// so callers can answer 404 instead of a generic 5xx.
func errAsNotFound(err error) (*domain.ErrNotFound, bool) {
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return notFound, true
	}
	return nil, false
}
