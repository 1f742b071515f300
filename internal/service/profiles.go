package service

import (
	"context"
	"strings"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var profileTracer = otel.Tracer("service/profiles")

// ProfileService is the admin surface for shipping profiles.
type ProfileService struct {
	repo       port.ShippingProfileRepository
	cargoCache port.Cache[domain.Cargo]
	logger     *zap.Logger
}

// NewProfileService creates the profile admin service.
func NewProfileService(repo port.ShippingProfileRepository, cargoCache port.Cache[domain.Cargo], logger *zap.Logger) *ProfileService {
	return &ProfileService{repo: repo, cargoCache: cargoCache, logger: logger}
}

// ListProfiles returns every profile with its product/plan usage counts.
func (s *ProfileService) ListProfiles(ctx context.Context) ([]domain.ShippingProfileUsage, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.ListProfiles")
	defer span.End()

	return s.repo.ListShippingProfileUsage(ctx)
}

// GetProfile returns a single profile.
func (s *ProfileService) GetProfile(ctx context.Context, profileID string) (*domain.ShippingProfile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("shipping_profile.id", profileID))

	if profileID == "" {
		return nil, &domain.ErrValidation{Field: "profileId", Message: "required"}
	}
	return s.repo.GetShippingProfile(ctx, profileID)
}

// CreateProfile validates bounds and persists a new profile. Quote
// caches are flushed so the new dimensions take effect immediately.
func (s *ProfileService) CreateProfile(ctx context.Context, req *domain.CreateShippingProfileRequest) (*domain.ShippingProfile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.CreateProfile")
	defer span.End()

	if err := validateProfileRequest(req); err != nil {
		return nil, err
	}

	profile, err := s.repo.CreateShippingProfile(ctx, req)
	if err != nil {
		s.logger.Error("failed to create shipping profile", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	s.cargoCache.Flush()
	s.logger.Info("shipping profile created",
		zap.String("profile_id", profile.ID),
		zap.String("name", profile.Name),
		zap.Float64("weight_kg", profile.WeightKg),
	)
	return profile, nil
}

// ToggleProfile flips a profile's active flag and flushes the cargo
// cache: a deactivated profile must stop feeding quotes at once.
func (s *ProfileService) ToggleProfile(ctx context.Context, profileID string) (*domain.ShippingProfile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.ToggleProfile")
	defer span.End()
	span.SetAttributes(attribute.String("shipping_profile.id", profileID))

	if profileID == "" {
		return nil, &domain.ErrValidation{Field: "profileId", Message: "required"}
	}

	current, err := s.repo.GetShippingProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetShippingProfileActive(ctx, profileID, !current.IsActive)
	if err != nil {
		s.logger.Error("failed to toggle shipping profile", zap.String("profile_id", profileID), zap.Error(err))
		return nil, err
	}

	s.cargoCache.Flush()
	s.logger.Info("shipping profile toggled",
		zap.String("profile_id", profileID),
		zap.Bool("is_active", updated.IsActive),
	)
	return updated, nil
}

func validateProfileRequest(req *domain.CreateShippingProfileRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if req.WeightKg <= 0 {
		return &domain.ErrValidation{Field: "weight_kg", Message: "must be positive"}
	}
	if req.WeightKg > domain.MaxProfileWeightKg {
		return &domain.ErrValidation{Field: "weight_kg", Message: "exceeds 30kg carrier limit"}
	}
	for _, dim := range []struct {
		field string
		value int
	}{
		{"width_cm", req.WidthCm},
		{"height_cm", req.HeightCm},
		{"length_cm", req.LengthCm},
	} {
		if dim.value <= 0 {
			return &domain.ErrValidation{Field: dim.field, Message: "must be positive"}
		}
		if dim.value > domain.MaxProfileDimensionCm {
			return &domain.ErrValidation{Field: dim.field, Message: "exceeds 100cm carrier limit"}
		}
	}
	return nil
}
