package handler

import (
	"net/http"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Catalog — products and plans
// ============================================================

func listProductsHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products")
		defer span.End()

		products, err := svc.ListProducts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if products == nil {
			products = []domain.Product{}
		}
		writeData(w, http.StatusOK, products)
	}
}

func getProductHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products/{productId}")
		defer span.End()

		product, err := svc.GetProduct(ctx, chi.URLParam(r, "productId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, product)
	}
}

func listPlansHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/plans")
		defer span.End()

		plans, err := svc.ListPlans(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if plans == nil {
			plans = []domain.Plan{}
		}
		writeData(w, http.StatusOK, plans)
	}
}

func getPlanHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/plans/{planId}")
		defer span.End()

		plan, err := svc.GetPlan(ctx, chi.URLParam(r, "planId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, plan)
	}
}
