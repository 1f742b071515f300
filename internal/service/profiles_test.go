package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vendalivre/storefront-api/internal/domain"

	"go.uber.org/zap"
)

func validProfileRequest() *domain.CreateShippingProfileRequest {
	return &domain.CreateShippingProfileRequest{
		Name:     "Caixa Média",
		WeightKg: 2.5,
		WidthCm:  30,
		HeightCm: 20,
		LengthCm: 40,
	}
}

func TestCreateProfile_Validation(t *testing.T) {
	svc := NewProfileService(
		&mockProfileRepo{profiles: map[string]*domain.ShippingProfile{}},
		newMapCache(),
		zap.NewNop(),
	)

	cases := []struct {
		name   string
		mutate func(*domain.CreateShippingProfileRequest)
	}{
		{"empty name", func(r *domain.CreateShippingProfileRequest) { r.Name = "  " }},
		{"zero weight", func(r *domain.CreateShippingProfileRequest) { r.WeightKg = 0 }},
		{"negative weight", func(r *domain.CreateShippingProfileRequest) { r.WeightKg = -1 }},
		{"overweight", func(r *domain.CreateShippingProfileRequest) { r.WeightKg = 30.5 }},
		{"zero width", func(r *domain.CreateShippingProfileRequest) { r.WidthCm = 0 }},
		{"oversize height", func(r *domain.CreateShippingProfileRequest) { r.HeightCm = 101 }},
		{"negative length", func(r *domain.CreateShippingProfileRequest) { r.LengthCm = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validProfileRequest()
			tc.mutate(req)
			_, err := svc.CreateProfile(context.Background(), req)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateProfile_BoundaryValuesAccepted(t *testing.T) {
	svc := NewProfileService(
		&mockProfileRepo{profiles: map[string]*domain.ShippingProfile{}},
		newMapCache(),
		zap.NewNop(),
	)

	req := &domain.CreateShippingProfileRequest{
		Name:     "Limite",
		WeightKg: 30.0,
		WidthCm:  100,
		HeightCm: 100,
		LengthCm: 100,
	}
	profile, err := svc.CreateProfile(context.Background(), req)
	if err != nil {
		t.Fatalf("boundary values should be accepted: %v", err)
	}
	if !profile.IsActive {
		t.Error("new profile should be active")
	}
}

func TestCreateProfile_FlushesCargoCache(t *testing.T) {
	cargoCache := newMapCache()
	cargoCache.Set("profile:stale", domain.Cargo{WeightKg: 9})

	svc := NewProfileService(
		&mockProfileRepo{profiles: map[string]*domain.ShippingProfile{}},
		cargoCache,
		zap.NewNop(),
	)

	if _, err := svc.CreateProfile(context.Background(), validProfileRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := cargoCache.Get("profile:stale"); ok {
		t.Error("cargo cache should be flushed after profile create")
	}
}

func TestToggleProfile(t *testing.T) {
	repo := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 2.0, true),
	}}
	cargoCache := newMapCache()
	cargoCache.Set("profile:p1", domain.Cargo{WeightKg: 2})
	svc := NewProfileService(repo, cargoCache, zap.NewNop())

	updated, err := svc.ToggleProfile(context.Background(), "p1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if updated.IsActive {
		t.Error("toggle should deactivate an active profile")
	}
	if _, ok := cargoCache.Get("profile:p1"); ok {
		t.Error("cargo cache should be flushed after toggle")
	}

	updated, err = svc.ToggleProfile(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if !updated.IsActive {
		t.Error("second toggle should reactivate the profile")
	}
}

func TestToggleProfile_NotFound(t *testing.T) {
	svc := NewProfileService(
		&mockProfileRepo{profiles: map[string]*domain.ShippingProfile{}},
		newMapCache(),
		zap.NewNop(),
	)

	_, err := svc.ToggleProfile(context.Background(), "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
