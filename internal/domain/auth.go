package domain

import "time"

// Customer roles. Admin unlocks the back-office surface and the
// free-shipping quote override.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Customer is a storefront account.
type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthCredential holds the stored password hash for a customer.
type AuthCredential struct {
	CustomerID   string
	PasswordHash string
}

// AuthRefreshToken is a stored (hashed) refresh token.
type AuthRefreshToken struct {
	ID         string
	CustomerID string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
}

// RegisterRequest creates a customer account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest authenticates with email + password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the token pair.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name,omitempty"`
	Role         string `json:"role"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
