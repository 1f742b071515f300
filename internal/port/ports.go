// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
)

// ShippingProfileRepository resolves and manages shipping profiles.
type ShippingProfileRepository interface {
	GetShippingProfile(ctx context.Context, profileID string) (*domain.ShippingProfile, error)
	ListShippingProfiles(ctx context.Context) ([]domain.ShippingProfile, error)
	ListShippingProfileUsage(ctx context.Context) ([]domain.ShippingProfileUsage, error)
	CreateShippingProfile(ctx context.Context, req *domain.CreateShippingProfileRequest) (*domain.ShippingProfile, error)
	SetShippingProfileActive(ctx context.Context, profileID string, active bool) (*domain.ShippingProfile, error)
}

// ProductRepository resolves catalog products.
type ProductRepository interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// PlanRepository resolves subscription plans.
type PlanRepository interface {
	GetPlan(ctx context.Context, planID string) (*domain.Plan, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}

// RateTable prices a cargo for a destination CEP. Implementations must
// be deterministic for identical inputs: quotes are audited after the
// fact against the options that were offered.
type RateTable interface {
	Quote(ctx context.Context, cargo domain.Cargo, destinationCEP string) ([]domain.QuoteOption, error)
}

// OrderStore persists orders and their immutable shipping snapshots.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// PaymentStore persists PIX charges.
type PaymentStore interface {
	CreatePixCharge(ctx context.Context, charge *domain.PixCharge) (*domain.PixCharge, error)
	GetPixCharge(ctx context.Context, chargeID string) (*domain.PixCharge, error)
	GetPixChargeByGatewayID(ctx context.Context, gatewayID string) (*domain.PixCharge, error)
	// GetPendingPixCharge returns the newest unexpired pending charge
	// for the customer+order pair, or nil when none exists.
	GetPendingPixCharge(ctx context.Context, customerID, orderID string, now time.Time) (*domain.PixCharge, error)
	UpdatePixChargeStatus(ctx context.Context, chargeID, status string, paidAt *time.Time) error
}

// PaymentGateway is the third-party PIX processor.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, orderID string, amountCents int64) (*domain.GatewayCharge, error)
	VerifySignature(payload []byte, signature string) bool
}

// AuthStore defines data operations for the authentication system.
type AuthStore interface {
	GetCustomerByID(ctx context.Context, customerID string) (*domain.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.Customer, error)
	GetCredentials(ctx context.Context, customerID string) (*domain.AuthCredential, error)

	StoreRefreshToken(ctx context.Context, customerID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, customerID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}
