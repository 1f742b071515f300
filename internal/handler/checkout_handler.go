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
// Checkout & orders
// ============================================================

func checkoutHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout")
		defer span.End()

		customerID := CustomerIDFromContext(ctx)
		span.SetAttributes(attribute.String("customer.id", customerID))

		var req domain.CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		order, err := svc.Checkout(ctx, customerID, &req, IsAdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, order)
	}
}

func getOrderHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders/{orderId}")
		defer span.End()

		orderID := chi.URLParam(r, "orderId")
		span.SetAttributes(attribute.String("order.id", orderID))

		order, err := svc.GetOrder(ctx, CustomerIDFromContext(ctx), orderID, IsAdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, order)
	}
}

func listOrdersHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{customerId}/orders")
		defer span.End()

		pathCustomerID := chi.URLParam(r, "customerId")
		authCustomerID := CustomerIDFromContext(ctx)

		// Customers may only list their own orders.
		if pathCustomerID != authCustomerID && !IsAdminFromContext(ctx) {
			writeError(w, http.StatusForbidden, "cannot list another customer's orders")
			return
		}

		page, pageSize := parsePagination(r)
		orders, err := svc.ListOrders(ctx, pathCustomerID, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		writeData(w, http.StatusOK, orders)
	}
}
