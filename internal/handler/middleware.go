package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/vendalivre/storefront-api/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	customerIDKey contextKey = "customerID"
	isAdminKey    contextKey = "isAdmin"
)

// JWTAuthMiddleware validates Bearer tokens and injects the customer
// identity into context. Requests without a valid token are rejected.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromRequest(r, authSvc)
			if !ok {
				logger.Warn("auth: missing or invalid token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing or invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), customerIDKey, claims.Sub)
			ctx = context.WithValue(ctx, isAdminKey, claims.IsAdmin())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware injects identity when a valid token is present
// but lets anonymous requests through. The quote endpoint uses this so
// admins get the free-shipping option while customers quote anonymously.
func OptionalAuthMiddleware(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := claimsFromRequest(r, authSvc); ok {
				ctx := context.WithValue(r.Context(), customerIDKey, claims.Sub)
				ctx = context.WithValue(ctx, isAdminKey, claims.IsAdmin())
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects authenticated requests whose token lacks the
// admin role. Must run after JWTAuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminFromContext(r.Context()) {
				logger.Warn("admin access denied",
					zap.String("path", r.URL.Path),
					zap.String("customer_id", CustomerIDFromContext(r.Context())),
				)
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromRequest(r *http.Request, authSvc *service.AuthService) (*service.JWTClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}
	claims, err := authSvc.ValidateAccessToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

// CustomerIDFromContext extracts the authenticated customer ID from context.
func CustomerIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(customerIDKey).(string)
	return v
}

// IsAdminFromContext reports whether the request carries an admin token.
func IsAdminFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(isAdminKey).(bool)
	return v
}
