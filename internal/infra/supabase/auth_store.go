package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// customerRow maps the customers table.
type customerRow struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func (r *customerRow) toDomain() domain.Customer {
	createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.Customer{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		Role:      r.Role,
		CreatedAt: createdAt,
	}
}

// credentialRow maps the auth_credentials table.
type credentialRow struct {
	CustomerID   string `json:"customer_id"`
	PasswordHash string `json:"password_hash"`
}

// refreshTokenRow maps the auth_refresh_tokens table.
type refreshTokenRow struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	TokenHash  string  `json:"token_hash"`
	ExpiresAt  string  `json:"expires_at"`
	RevokedAt  *string `json:"revoked_at"`
}

func (r *refreshTokenRow) toDomain() domain.AuthRefreshToken {
	expiresAt, _ := time.Parse(time.RFC3339, r.ExpiresAt)
	token := domain.AuthRefreshToken{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		TokenHash:  r.TokenHash,
		ExpiresAt:  expiresAt,
	}
	if r.RevokedAt != nil {
		if revokedAt, err := time.Parse(time.RFC3339, *r.RevokedAt); err == nil {
			token.RevokedAt = &revokedAt
		}
	}
	return token
}

// GetCustomerByID fetches one customer account.
func (c *Client) GetCustomerByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCustomerByID")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	path := fmt.Sprintf("customers?id=eq.%s&limit=1", customerID)
	return c.getCustomer(ctx, path, customerID)
}

// GetCustomerByEmail fetches a customer by email. Returns nil, nil when
// no account exists, so registration can distinguish "free" from errors.
func (c *Client) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCustomerByEmail")
	defer span.End()

	var customer *domain.Customer

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("customers?email=eq.%s&limit=1", url.QueryEscape(email))
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				customer = nil
				return nil
			}

			var rows []customerRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode customer: %w", err)
			}
			if len(rows) == 0 {
				customer = nil
				return nil
			}

			cust := rows[0].toDomain()
			customer = &cust
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/customers", Err: err}
	}

	return customer, nil
}

// CreateCustomer inserts the account and its credential. PostgREST has
// no transactions over REST, so a failed credential insert leaves an
// account without a password; login then fails closed.
func (c *Client) CreateCustomer(ctx context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCustomer")
	defer span.End()

	var created *domain.Customer

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doPost(ctx, "customers", map[string]any{
				"id":    uuid.New().String(),
				"email": req.Email,
				"name":  req.Name,
				"role":  domain.RoleCustomer,
			})
			if err != nil {
				return err
			}

			var rows []customerRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode created customer: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("supabase returned no row for created customer")
			}

			if _, err := c.doPost(ctx, "auth_credentials", map[string]any{
				"customer_id":   rows[0].ID,
				"password_hash": passwordHash,
			}); err != nil {
				return err
			}

			cust := rows[0].toDomain()
			created = &cust
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/customers", Err: err}
	}

	return created, nil
}

// GetCredentials fetches the stored password hash for a customer.
func (c *Client) GetCredentials(ctx context.Context, customerID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredentials")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var cred *domain.AuthCredential

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("auth_credentials?customer_id=eq.%s&limit=1", customerID)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "credentials", ID: customerID}
			}

			var rows []credentialRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode credentials: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "credentials", ID: customerID}
			}

			cred = &domain.AuthCredential{
				CustomerID:   rows[0].CustomerID,
				PasswordHash: rows[0].PasswordHash,
			}
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/auth_credentials", Err: err}
	}

	return cred, nil
}

// StoreRefreshToken persists a hashed refresh token.
func (c *Client) StoreRefreshToken(ctx context.Context, customerID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doPost(ctx, "auth_refresh_tokens", map[string]any{
				"id":          uuid.New().String(),
				"customer_id": customerID,
				"token_hash":  tokenHash,
				"expires_at":  expiresAt.UTC().Format(time.RFC3339),
			})
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}

	return nil
}

// GetRefreshToken looks up an unrevoked refresh token by its hash.
func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	var token *domain.AuthRefreshToken

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&revoked_at=is.null&limit=1", tokenHash)
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "refresh token", ID: ""}
			}

			var rows []refreshTokenRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode refresh token: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "refresh token", ID: ""}
			}

			t := rows[0].toDomain()
			token = &t
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}

	return token, nil
}

// RevokeRefreshToken marks one token as revoked, keyed by its hash.
func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s", tokenHash)
			_, err := c.doPatch(ctx, path, map[string]any{
				"revoked_at": time.Now().UTC().Format(time.RFC3339),
			})
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}

	return nil
}

// RevokeAllRefreshTokens revokes every live token for a customer (logout).
func (c *Client) RevokeAllRefreshTokens(ctx context.Context, customerID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("auth_refresh_tokens?customer_id=eq.%s&revoked_at=is.null", customerID)
			_, err := c.doPatch(ctx, path, map[string]any{
				"revoked_at": time.Now().UTC().Format(time.RFC3339),
			})
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}

	return nil
}

func (c *Client) getCustomer(ctx context.Context, path, id string) (*domain.Customer, error) {
	var customer *domain.Customer

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return &domain.ErrNotFound{Resource: "customer", ID: id}
			}

			var rows []customerRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode customer: %w", err)
			}
			if len(rows) == 0 {
				return &domain.ErrNotFound{Resource: "customer", ID: id}
			}

			cust := rows[0].toDomain()
			customer = &cust
			return nil
		})
	})

	if err != nil {
		if notFound, ok := errAsNotFound(err); ok {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/customers", Err: err}
	}

	return customer, nil
}
