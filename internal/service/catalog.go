package service

import (
	"context"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var catalogTracer = otel.Tracer("service/catalog")

// CatalogService exposes the storefront's products and plans.
type CatalogService struct {
	products port.ProductRepository
	plans    port.PlanRepository
}

// NewCatalogService creates the catalog service.
func NewCatalogService(products port.ProductRepository, plans port.PlanRepository) *CatalogService {
	return &CatalogService{products: products, plans: plans}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListProducts")
	defer span.End()

	return s.products.ListProducts(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	if productID == "" {
		return nil, &domain.ErrValidation{Field: "productId", Message: "required"}
	}
	return s.products.GetProduct(ctx, productID)
}

func (s *CatalogService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListPlans")
	defer span.End()

	return s.plans.ListPlans(ctx)
}

func (s *CatalogService) GetPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetPlan")
	defer span.End()
	span.SetAttributes(attribute.String("plan.id", planID))

	if planID == "" {
		return nil, &domain.ErrValidation{Field: "planId", Message: "required"}
	}
	return s.plans.GetPlan(ctx, planID)
}
