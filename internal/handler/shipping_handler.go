package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Shipping quote — POST /v1/shipping/quote
// ============================================================

func quoteHandler(svc *service.ShippingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/shipping/quote")
		defer span.End()

		var req domain.QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("quote.destination_cep", req.DestinationCEP))

		options, err := svc.CalculateShipping(ctx, &req, IsAdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeData(w, http.StatusOK, options)
	}
}

// ============================================================
// Admin shipping profiles — /v1/admin/shipping-profiles
// ============================================================

func listProfilesHandler(svc *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/shipping-profiles")
		defer span.End()

		profiles, err := svc.ListProfiles(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if profiles == nil {
			profiles = []domain.ShippingProfileUsage{}
		}
		writeData(w, http.StatusOK, profiles)
	}
}

func createProfileHandler(svc *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/shipping-profiles")
		defer span.End()

		var req domain.CreateShippingProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := svc.CreateProfile(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, profile)
	}
}

func toggleProfileHandler(svc *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/shipping-profiles/{profileId}/toggle")
		defer span.End()

		profileID := chi.URLParam(r, "profileId")
		if profileID == "" {
			writeError(w, http.StatusBadRequest, "profileId is required")
			return
		}
		span.SetAttributes(attribute.String("profile.id", profileID))

		profile, err := svc.ToggleProfile(ctx, profileID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, profile)
	}
}
