package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/observability"
	"github.com/vendalivre/storefront-api/internal/infra/ratetable"

	"go.uber.org/zap"
)

// ── mocks ──

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.ShippingProfile
	getCalls int
}

func (m *mockProfileRepo) GetShippingProfile(_ context.Context, id string) (*domain.ShippingProfile, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, &domain.ErrNotFound{Resource: "shipping profile", ID: id}
}

func (m *mockProfileRepo) ListShippingProfiles(context.Context) ([]domain.ShippingProfile, error) {
	out := make([]domain.ShippingProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProfileRepo) ListShippingProfileUsage(context.Context) ([]domain.ShippingProfileUsage, error) {
	return nil, nil
}

func (m *mockProfileRepo) CreateShippingProfile(_ context.Context, req *domain.CreateShippingProfileRequest) (*domain.ShippingProfile, error) {
	p := &domain.ShippingProfile{
		ID:       "created",
		Name:     req.Name,
		WeightKg: req.WeightKg,
		WidthCm:  req.WidthCm,
		HeightCm: req.HeightCm,
		LengthCm: req.LengthCm,
		IsActive: true,
	}
	m.profiles[p.ID] = p
	return p, nil
}

func (m *mockProfileRepo) SetShippingProfileActive(_ context.Context, id string, active bool) (*domain.ShippingProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "shipping profile", ID: id}
	}
	p.IsActive = active
	return p, nil
}

type mockProductRepo struct {
	products map[string]*domain.Product
}

func (m *mockProductRepo) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id}
}

func (m *mockProductRepo) ListProducts(context.Context) ([]domain.Product, error) {
	return nil, nil
}

type mockPlanRepo struct {
	plans map[string]*domain.Plan
}

func (m *mockPlanRepo) GetPlan(_ context.Context, id string) (*domain.Plan, error) {
	if p, ok := m.plans[id]; ok {
		return p, nil
	}
	return nil, &domain.ErrNotFound{Resource: "plan", ID: id}
}

func (m *mockPlanRepo) ListPlans(context.Context) ([]domain.Plan, error) {
	return nil, nil
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]domain.Cargo
}

func newMapCache() *mapCache { return &mapCache{items: make(map[string]domain.Cargo)} }

func (c *mapCache) Get(key string) (domain.Cargo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(key string, value domain.Cargo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *mapCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]domain.Cargo)
}

// ── fixtures ──

func testProfile(id string, weight float64, active bool) *domain.ShippingProfile {
	return &domain.ShippingProfile{
		ID:       id,
		Name:     "Caixa " + id,
		WeightKg: weight,
		WidthCm:  20,
		HeightCm: 15,
		LengthCm: 30,
		IsActive: active,
	}
}

func newTestShippingService(profiles *mockProfileRepo, products *mockProductRepo, plans *mockPlanRepo) *ShippingService {
	if profiles == nil {
		profiles = &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{}}
	}
	if products == nil {
		products = &mockProductRepo{products: map[string]*domain.Product{}}
	}
	if plans == nil {
		plans = &mockPlanRepo{plans: map[string]*domain.Plan{}}
	}
	return NewShippingService(
		profiles, products, plans,
		ratetable.NewStatic("01310100"),
		newMapCache(),
		observability.NewMetrics(),
		zap.NewNop(),
		"01310100", "",
	)
}

// ── tests ──

func TestCalculateShipping_SortedByPrice(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 2.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)

	options, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP:    "30130010",
		ShippingProfileID: "p1",
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(options) == 0 {
		t.Fatal("expected at least one option")
	}
	for i := 1; i < len(options); i++ {
		if options[i].Price < options[i-1].Price {
			t.Errorf("options not sorted by price: %v before %v", options[i-1], options[i])
		}
	}
}

func TestCalculateShipping_Deterministic(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 4.5, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)
	req := &domain.QuoteRequest{DestinationCEP: "90010000", ShippingProfileID: "p1"}

	first, err := svc.CalculateShipping(context.Background(), req, false)
	if err != nil {
		t.Fatalf("first quote: %v", err)
	}
	second, err := svc.CalculateShipping(context.Background(), req, false)
	if err != nil {
		t.Fatalf("second quote: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("option count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("option %d changed between identical quotes: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestCalculateShipping_AdminGetsOneFreeOption(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 1.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)

	options, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP:    "01310100",
		ShippingProfileID: "p1",
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zeroPrice := 0
	for _, opt := range options {
		if opt.Price == 0 {
			zeroPrice++
			if opt.OptionID != FreeShippingOptionID {
				t.Errorf("zero-price option id = %q, want %q", opt.OptionID, FreeShippingOptionID)
			}
		}
	}
	if zeroPrice != 1 {
		t.Fatalf("admin quote has %d zero-price options, want exactly 1", zeroPrice)
	}
	if options[0].Price != 0 {
		t.Errorf("free option should sort first, got %v", options[0])
	}

	// Free shipping reuses the fastest quoted estimate.
	fastest := options[1].DeliveryDays
	for _, opt := range options[1:] {
		if opt.DeliveryDays < fastest {
			fastest = opt.DeliveryDays
		}
	}
	if options[0].DeliveryDays != fastest {
		t.Errorf("free option delivery days = %d, want fastest %d", options[0].DeliveryDays, fastest)
	}
}

func TestCalculateShipping_CustomerNeverGetsFreeOption(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 1.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)

	options, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP:    "01310100",
		ShippingProfileID: "p1",
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, opt := range options {
		if opt.Price == 0 || opt.OptionID == FreeShippingOptionID {
			t.Errorf("customer quote contains free option: %v", opt)
		}
	}
}

func TestCalculateShipping_MalformedCEP(t *testing.T) {
	svc := newTestShippingService(nil, nil, nil)

	for _, cep := range []string{"", "1234567", "123456789", "abcdefgh", "1234-567"} {
		_, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
			DestinationCEP:    cep,
			ShippingProfileID: "p1",
		}, false)
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) {
			t.Errorf("cep %q: expected validation error, got %v", cep, err)
		}
	}
}

func TestCalculateShipping_HyphenatedCEPAccepted(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 1.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)

	_, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP:    "01310-100",
		ShippingProfileID: "p1",
	}, false)
	if err != nil {
		t.Fatalf("hyphenated CEP should be accepted: %v", err)
	}
}

func TestCalculateShipping_CargoSourceValidation(t *testing.T) {
	svc := newTestShippingService(nil, nil, nil)

	cases := []struct {
		name string
		req  domain.QuoteRequest
	}{
		{"no source", domain.QuoteRequest{DestinationCEP: "01310100"}},
		{"profile and plan", domain.QuoteRequest{DestinationCEP: "01310100", ShippingProfileID: "p1", PlanID: "pl1"}},
		{"profile and products", domain.QuoteRequest{DestinationCEP: "01310100", ShippingProfileID: "p1", ProductIDs: []string{"a"}}},
		{"empty product id", domain.QuoteRequest{DestinationCEP: "01310100", ProductIDs: []string{"a", ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CalculateShipping(context.Background(), &tc.req, false)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCalculateShipping_InactiveProfile(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 1.0, false),
	}}
	svc := newTestShippingService(profiles, nil, nil)

	_, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP:    "01310100",
		ShippingProfileID: "p1",
	}, false)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found for inactive profile, got %v", err)
	}
}

func TestCalculateShipping_OverweightHasNoOptions(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"heavy": testProfile("heavy", 28.0, true),
	}}
	// Two heavy products combine past every carrier's weight limit.
	products := &mockProductRepo{products: map[string]*domain.Product{
		"a": {ID: "a", ShippingProfileID: "heavy", IsActive: true},
		"b": {ID: "b", ShippingProfileID: "heavy", IsActive: true},
	}}
	svc := newTestShippingService(profiles, products, nil)

	_, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP: "01310100",
		ProductIDs:     []string{"a", "b"},
	}, false)
	var noOpts *domain.ErrNoShippingOptions
	if !errors.As(err, &noOpts) {
		t.Fatalf("expected no-options error, got %v", err)
	}
}

func TestCalculateShipping_PlanSource(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"box": testProfile("box", 2.0, true),
	}}
	plans := &mockPlanRepo{plans: map[string]*domain.Plan{
		"monthly": {ID: "monthly", ShippingProfileID: "box", IsActive: true},
	}}
	svc := newTestShippingService(profiles, nil, plans)

	options, err := svc.CalculateShipping(context.Background(), &domain.QuoteRequest{
		DestinationCEP: "70040010",
		PlanID:         "monthly",
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(options) == 0 {
		t.Fatal("expected options for plan quote")
	}
}

func TestCalculateShipping_CargoCacheReusedAcrossQuotes(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 2.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)
	req := &domain.QuoteRequest{DestinationCEP: "01310100", ShippingProfileID: "p1"}

	if _, err := svc.CalculateShipping(context.Background(), req, false); err != nil {
		t.Fatalf("first quote: %v", err)
	}
	if _, err := svc.CalculateShipping(context.Background(), req, false); err != nil {
		t.Fatalf("second quote: %v", err)
	}

	if profiles.getCalls != 1 {
		t.Errorf("profile fetched %d times, want 1 (second quote should hit cache)", profiles.getCalls)
	}
}

func TestCombineCargos(t *testing.T) {
	combined := combineCargos([]domain.Cargo{
		{WeightKg: 1.5, Dimensions: domain.Dimensions{WidthCm: 20, HeightCm: 10, LengthCm: 40}},
		{WeightKg: 2.5, Dimensions: domain.Dimensions{WidthCm: 30, HeightCm: 15, LengthCm: 25}},
	})

	if combined.WeightKg != 4.0 {
		t.Errorf("combined weight = %v, want 4.0", combined.WeightKg)
	}
	if combined.Dimensions.HeightCm != 25 {
		t.Errorf("combined height = %d, want 25 (stacked)", combined.Dimensions.HeightCm)
	}
	if combined.Dimensions.WidthCm != 30 {
		t.Errorf("combined width = %d, want max 30", combined.Dimensions.WidthCm)
	}
	if combined.Dimensions.LengthCm != 40 {
		t.Errorf("combined length = %d, want max 40", combined.Dimensions.LengthCm)
	}
}

func TestCombineCargos_HeightCapped(t *testing.T) {
	tall := domain.Cargo{Dimensions: domain.Dimensions{WidthCm: 10, HeightCm: 60, LengthCm: 10}}
	combined := combineCargos([]domain.Cargo{tall, tall})
	if combined.Dimensions.HeightCm != domain.MaxProfileDimensionCm {
		t.Errorf("stacked height = %d, want capped at %d", combined.Dimensions.HeightCm, domain.MaxProfileDimensionCm)
	}
}

func TestCargoCacheKey_ProductOrderInsensitive(t *testing.T) {
	a := cargoCacheKey(&domain.QuoteRequest{ProductIDs: []string{"x", "y", "z"}})
	b := cargoCacheKey(&domain.QuoteRequest{ProductIDs: []string{"z", "x", "y"}})
	if a != b {
		t.Errorf("cache keys differ for permuted baskets: %q vs %q", a, b)
	}
}

func TestSnapshotOption(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 2.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)
	req := &domain.QuoteRequest{DestinationCEP: "01310-100", ShippingProfileID: "p1"}

	options, err := svc.CalculateShipping(context.Background(), req, false)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	selected := options[0]

	snap, err := svc.SnapshotOption(context.Background(), req, selected.OptionID, false)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.OptionID != selected.OptionID || snap.Price != selected.Price || snap.DeliveryDays != selected.DeliveryDays {
		t.Errorf("snapshot does not match quoted option: %+v vs %+v", snap, selected)
	}
	if snap.DestinationZipCode != "01310100" {
		t.Errorf("snapshot destination = %q, want normalized 01310100", snap.DestinationZipCode)
	}
	if snap.OriginZipCode != "01310100" {
		t.Errorf("snapshot origin = %q", snap.OriginZipCode)
	}
	if snap.TotalWeightKg != 2.0 {
		t.Errorf("snapshot weight = %v, want 2.0", snap.TotalWeightKg)
	}
	if snap.QuotedAt.IsZero() {
		t.Error("snapshot missing quoted_at")
	}
	wantDate := snap.QuotedAt.AddDate(0, 0, selected.DeliveryDays).Format("2006-01-02")
	if snap.EstimatedDeliveryDate != wantDate {
		t.Errorf("estimated delivery = %q, want %q", snap.EstimatedDeliveryDate, wantDate)
	}
}

func TestSnapshotOption_UnknownOption(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 2.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)

	_, err := svc.SnapshotOption(context.Background(), &domain.QuoteRequest{
		DestinationCEP:    "01310100",
		ShippingProfileID: "p1",
	}, "nonexistent-option", false)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found for unknown option, got %v", err)
	}
}

func TestSnapshotOption_FreeShippingAdminOnly(t *testing.T) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"p1": testProfile("p1", 2.0, true),
	}}
	svc := newTestShippingService(profiles, nil, nil)
	req := &domain.QuoteRequest{DestinationCEP: "01310100", ShippingProfileID: "p1"}

	// Customers never see the option, so they cannot select it.
	_, err := svc.SnapshotOption(context.Background(), req, FreeShippingOptionID, false)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found for customer selecting free shipping, got %v", err)
	}

	snap, err := svc.SnapshotOption(context.Background(), req, FreeShippingOptionID, true)
	if err != nil {
		t.Fatalf("admin should be able to select free shipping: %v", err)
	}
	if snap.Price != 0 {
		t.Errorf("free shipping snapshot price = %v, want 0", snap.Price)
	}
}
