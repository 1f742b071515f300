// Package service provides the business logic layer (use cases).
// ShippingService is the heart of the storefront: it resolves a cargo
// source, prices it against the rate table and returns carrier options.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/observability"
	"github.com/vendalivre/storefront-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var shippingTracer = otel.Tracer("service/shipping")

// FreeShippingOptionID is the synthetic zero-price option appended to
// quotes for admin sessions.
const FreeShippingOptionID = "free-shipping"

// ShippingService calculates shipping quotes from CEP + cargo source.
type ShippingService struct {
	profiles port.ShippingProfileRepository
	products port.ProductRepository
	plans    port.PlanRepository
	rates    port.RateTable

	cargoCache port.Cache[domain.Cargo]
	metrics    *observability.Metrics
	logger     *zap.Logger

	originCEP        string
	defaultProfileID string
}

// NewShippingService creates the quote calculator.
func NewShippingService(
	profiles port.ShippingProfileRepository,
	products port.ProductRepository,
	plans port.PlanRepository,
	rates port.RateTable,
	cargoCache port.Cache[domain.Cargo],
	metrics *observability.Metrics,
	logger *zap.Logger,
	originCEP, defaultProfileID string,
) *ShippingService {
	return &ShippingService{
		profiles:         profiles,
		products:         products,
		plans:            plans,
		rates:            rates,
		cargoCache:       cargoCache,
		metrics:          metrics,
		logger:           logger,
		originCEP:        originCEP,
		defaultProfileID: defaultProfileID,
	}
}

// CalculateShipping validates the request, resolves the cargo and
// prices it. Admin sessions get an extra zero-price option so the
// back office can grant free shipping; everything stays sorted by
// price then delivery days.
func (s *ShippingService) CalculateShipping(ctx context.Context, req *domain.QuoteRequest, isAdmin bool) ([]domain.QuoteOption, error) {
	ctx, span := shippingTracer.Start(ctx, "ShippingService.CalculateShipping")
	defer span.End()
	span.SetAttributes(
		attribute.String("shipping.destination_cep", req.DestinationCEP),
		attribute.Bool("shipping.is_admin", isAdmin),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("shipping_quote", time.Since(start)) }()

	options, _, err := s.quote(ctx, req)
	if err != nil {
		s.metrics.RecordQuote("error", 0)
		return nil, err
	}

	if isAdmin {
		options = appendFreeShipping(options)
	}

	sortOptions(options)

	s.metrics.RecordQuote("success", len(options))
	s.logger.Info("shipping quote calculated",
		zap.String("destination_cep", req.DestinationCEP),
		zap.Int("option_count", len(options)),
		zap.Bool("is_admin", isAdmin),
	)

	return options, nil
}

// SnapshotOption re-quotes the request and freezes the selected option
// into an order shipping snapshot. Checkout uses this so the stored
// price always traces back to an option the calculator actually offered.
// The free-shipping option only exists for admin sessions, so only an
// admin checkout can select it.
func (s *ShippingService) SnapshotOption(ctx context.Context, req *domain.QuoteRequest, optionID string, isAdmin bool) (*domain.OrderShippingData, error) {
	ctx, span := shippingTracer.Start(ctx, "ShippingService.SnapshotOption")
	defer span.End()
	span.SetAttributes(attribute.String("shipping.option_id", optionID))

	options, cargo, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		options = appendFreeShipping(options)
	}

	for _, opt := range options {
		if opt.OptionID != optionID {
			continue
		}
		now := time.Now().UTC()
		return &domain.OrderShippingData{
			OptionID:              opt.OptionID,
			Carrier:               opt.Carrier,
			Service:               opt.Service,
			Price:                 opt.Price,
			DeliveryDays:          opt.DeliveryDays,
			DestinationZipCode:    normalizeCEP(req.DestinationCEP),
			OriginZipCode:         s.originCEP,
			TotalWeightKg:         cargo.WeightKg,
			Dimensions:            cargo.Dimensions,
			QuotedAt:              now,
			EstimatedDeliveryDate: now.AddDate(0, 0, opt.DeliveryDays).Format("2006-01-02"),
		}, nil
	}

	return nil, &domain.ErrNotFound{Resource: "shipping option", ID: optionID}
}

// quote is the shared validate → resolve → price pipeline.
func (s *ShippingService) quote(ctx context.Context, req *domain.QuoteRequest) ([]domain.QuoteOption, domain.Cargo, error) {
	cep := normalizeCEP(req.DestinationCEP)
	if err := validateCEP(cep); err != nil {
		return nil, domain.Cargo{}, err
	}
	if err := validateCargoSource(req); err != nil {
		return nil, domain.Cargo{}, err
	}

	cargo, err := s.resolveCargo(ctx, req)
	if err != nil {
		return nil, domain.Cargo{}, err
	}

	options, err := s.rates.Quote(ctx, cargo, cep)
	if err != nil {
		return nil, domain.Cargo{}, err
	}
	if len(options) == 0 {
		return nil, domain.Cargo{}, &domain.ErrNoShippingOptions{DestinationCEP: cep}
	}

	return options, cargo, nil
}

// resolveCargo turns the request's cargo source into weight+dimensions,
// consulting the cargo cache first.
func (s *ShippingService) resolveCargo(ctx context.Context, req *domain.QuoteRequest) (domain.Cargo, error) {
	ctx, span := shippingTracer.Start(ctx, "ShippingService.resolveCargo")
	defer span.End()

	key := cargoCacheKey(req)
	if cargo, ok := s.cargoCache.Get(key); ok {
		s.metrics.IncrCacheHit("cargo")
		return cargo, nil
	}
	s.metrics.IncrCacheMiss("cargo")

	var cargo domain.Cargo
	var err error
	switch {
	case req.ShippingProfileID != "":
		cargo, err = s.cargoFromProfile(ctx, req.ShippingProfileID)
	case len(req.ProductIDs) > 0:
		cargo, err = s.cargoFromProducts(ctx, req.ProductIDs)
	default:
		cargo, err = s.cargoFromPlan(ctx, req.PlanID)
	}
	if err != nil {
		return domain.Cargo{}, err
	}

	s.cargoCache.Set(key, cargo)
	return cargo, nil
}

func (s *ShippingService) cargoFromProfile(ctx context.Context, profileID string) (domain.Cargo, error) {
	profile, err := s.profiles.GetShippingProfile(ctx, profileID)
	if err != nil {
		return domain.Cargo{}, err
	}
	if !profile.IsActive {
		// Inactive profiles are invisible to quoting.
		return domain.Cargo{}, &domain.ErrNotFound{Resource: "shipping profile", ID: profileID}
	}
	return profileCargo(profile), nil
}

// cargoFromProducts resolves each product's profile concurrently and
// combines them into one parcel: weights and heights add up (boxes are
// stacked), width and length take the largest footprint. Dimensions
// are capped at the carrier maximum; weight is not, so an overweight
// combination simply prices to zero options.
func (s *ShippingService) cargoFromProducts(ctx context.Context, productIDs []string) (domain.Cargo, error) {
	cargos := make([]domain.Cargo, len(productIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range productIDs {
		i, id := i, id
		g.Go(func() error {
			product, err := s.products.GetProduct(gctx, id)
			if err != nil {
				return err
			}
			profileID := product.ShippingProfileID
			if profileID == "" {
				profileID = s.defaultProfileID
			}
			if profileID == "" {
				return &domain.ErrValidation{Field: "product_ids", Message: fmt.Sprintf("product %s has no shipping profile", id)}
			}
			cargo, err := s.cargoFromProfile(gctx, profileID)
			if err != nil {
				return err
			}
			cargos[i] = cargo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Cargo{}, err
	}

	return combineCargos(cargos), nil
}

func (s *ShippingService) cargoFromPlan(ctx context.Context, planID string) (domain.Cargo, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return domain.Cargo{}, err
	}
	profileID := plan.ShippingProfileID
	if profileID == "" {
		profileID = s.defaultProfileID
	}
	if profileID == "" {
		return domain.Cargo{}, &domain.ErrValidation{Field: "plan_id", Message: fmt.Sprintf("plan %s has no shipping profile", planID)}
	}
	return s.cargoFromProfile(ctx, profileID)
}

func profileCargo(p *domain.ShippingProfile) domain.Cargo {
	return domain.Cargo{
		WeightKg: p.WeightKg,
		Dimensions: domain.Dimensions{
			WidthCm:  p.WidthCm,
			HeightCm: p.HeightCm,
			LengthCm: p.LengthCm,
		},
	}
}

func combineCargos(cargos []domain.Cargo) domain.Cargo {
	var combined domain.Cargo
	for _, c := range cargos {
		combined.WeightKg += c.WeightKg
		combined.Dimensions.HeightCm += c.Dimensions.HeightCm
		if c.Dimensions.WidthCm > combined.Dimensions.WidthCm {
			combined.Dimensions.WidthCm = c.Dimensions.WidthCm
		}
		if c.Dimensions.LengthCm > combined.Dimensions.LengthCm {
			combined.Dimensions.LengthCm = c.Dimensions.LengthCm
		}
	}
	if combined.Dimensions.HeightCm > domain.MaxProfileDimensionCm {
		combined.Dimensions.HeightCm = domain.MaxProfileDimensionCm
	}
	return combined
}

// appendFreeShipping adds the admin zero-price option. It reuses the
// fastest quoted delivery estimate so the override never promises a
// deadline no carrier offered.
func appendFreeShipping(options []domain.QuoteOption) []domain.QuoteOption {
	fastest := options[0].DeliveryDays
	for _, opt := range options[1:] {
		if opt.DeliveryDays < fastest {
			fastest = opt.DeliveryDays
		}
	}
	return append(options, domain.QuoteOption{
		OptionID:     FreeShippingOptionID,
		Carrier:      "VendaLivre",
		Service:      "Frete Grátis",
		Price:        0,
		DeliveryDays: fastest,
	})
}

func sortOptions(options []domain.QuoteOption) {
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Price != options[j].Price {
			return options[i].Price < options[j].Price
		}
		return options[i].DeliveryDays < options[j].DeliveryDays
	})
}

// normalizeCEP strips the conventional hyphen ("01310-100" → "01310100").
func normalizeCEP(cep string) string {
	return strings.ReplaceAll(strings.TrimSpace(cep), "-", "")
}

func validateCEP(cep string) error {
	if len(cep) != 8 {
		return &domain.ErrValidation{Field: "cep", Message: "must have exactly 8 digits"}
	}
	for i := 0; i < len(cep); i++ {
		if cep[i] < '0' || cep[i] > '9' {
			return &domain.ErrValidation{Field: "cep", Message: "must contain only digits"}
		}
	}
	return nil
}

// validateCargoSource enforces that exactly one of profile, products or
// plan is present.
func validateCargoSource(req *domain.QuoteRequest) error {
	sources := 0
	if req.ShippingProfileID != "" {
		sources++
	}
	if len(req.ProductIDs) > 0 {
		sources++
	}
	if req.PlanID != "" {
		sources++
	}
	if sources == 0 {
		return &domain.ErrValidation{Field: "body", Message: "one of shipping_profile_id, product_ids or plan_id is required"}
	}
	if sources > 1 {
		return &domain.ErrValidation{Field: "body", Message: "only one of shipping_profile_id, product_ids or plan_id may be set"}
	}
	for _, id := range req.ProductIDs {
		if id == "" {
			return &domain.ErrValidation{Field: "product_ids", Message: "must not contain empty ids"}
		}
	}
	return nil
}

// cargoCacheKey is order-insensitive for product lists so permutations
// of the same basket share a cache entry.
func cargoCacheKey(req *domain.QuoteRequest) string {
	switch {
	case req.ShippingProfileID != "":
		return "profile:" + req.ShippingProfileID
	case len(req.ProductIDs) > 0:
		ids := make([]string, len(req.ProductIDs))
		copy(ids, req.ProductIDs)
		sort.Strings(ids)
		return "products:" + strings.Join(ids, ",")
	default:
		return "plan:" + req.PlanID
	}
}
