package service

import (
	"context"
	"math"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var checkoutTracer = otel.Tracer("service/checkout")

// CheckoutService turns a basket + selected shipping option into an
// order. The shipping option is always re-verified against a fresh
// quote before the price is frozen onto the order.
type CheckoutService struct {
	shipping *ShippingService
	products port.ProductRepository
	plans    port.PlanRepository
	orders   port.OrderStore
	logger   *zap.Logger
}

// NewCheckoutService creates the checkout service.
func NewCheckoutService(shipping *ShippingService, products port.ProductRepository, plans port.PlanRepository, orders port.OrderStore, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		shipping: shipping,
		products: products,
		plans:    plans,
		orders:   orders,
		logger:   logger,
	}
}

// Checkout validates the request, re-quotes the selected shipping
// option and persists the order with its immutable shipping snapshot.
func (s *CheckoutService) Checkout(ctx context.Context, customerID string, req *domain.CheckoutRequest, isAdmin bool) (*domain.Order, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	if customerID == "" {
		return nil, &domain.ErrUnauthorized{Message: "authentication required for checkout"}
	}
	if req.SelectedOptionID == "" {
		return nil, &domain.ErrValidation{Field: "selected_option_id", Message: "required"}
	}
	if len(req.ProductIDs) > 0 && req.PlanID != "" {
		return nil, &domain.ErrValidation{Field: "body", Message: "only one of product_ids or plan_id may be set"}
	}
	if len(req.ProductIDs) == 0 && req.PlanID == "" {
		return nil, &domain.ErrValidation{Field: "body", Message: "one of product_ids or plan_id is required"}
	}

	// Re-quote and freeze the selected option. An option that no longer
	// exists (changed profile, deactivated product) fails the checkout.
	snapshot, err := s.shipping.SnapshotOption(ctx, &domain.QuoteRequest{
		DestinationCEP: req.DestinationCEP,
		ProductIDs:     req.ProductIDs,
		PlanID:         req.PlanID,
	}, req.SelectedOptionID, isAdmin)
	if err != nil {
		return nil, err
	}

	items, itemsCents, planID, err := s.resolveBasket(ctx, req)
	if err != nil {
		return nil, err
	}

	freightCents := int64(math.Round(snapshot.Price * 100))
	order := &domain.Order{
		ID:           uuid.New().String(),
		CustomerID:   customerID,
		Items:        items,
		PlanID:       planID,
		Status:       domain.OrderStatusPendingPayment,
		ItemsCents:   itemsCents,
		FreightCents: freightCents,
		TotalCents:   itemsCents + freightCents,
		ShippingData: snapshot,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		s.logger.Error("failed to create order",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("customer_id", customerID),
		zap.Int64("total_cents", created.TotalCents),
		zap.String("shipping_option", snapshot.OptionID),
	)
	return created, nil
}

// GetOrder returns an order, restricted to its owner unless the caller
// is an admin.
func (s *CheckoutService) GetOrder(ctx context.Context, customerID, orderID string, isAdmin bool) (*domain.Order, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.CustomerID != customerID {
		// Hide other customers' orders entirely.
		return nil, &domain.ErrNotFound{Resource: "order", ID: orderID}
	}
	return order, nil
}

// ListOrders returns a customer's order history, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, customerID string, page, pageSize int) ([]domain.Order, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.ListOrders")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	if customerID == "" {
		return nil, &domain.ErrValidation{Field: "customerId", Message: "required"}
	}
	return s.orders.ListOrders(ctx, customerID, page, pageSize)
}

// resolveBasket prices the basket and builds the order items.
func (s *CheckoutService) resolveBasket(ctx context.Context, req *domain.CheckoutRequest) ([]domain.OrderItem, int64, string, error) {
	if req.PlanID != "" {
		plan, err := s.plans.GetPlan(ctx, req.PlanID)
		if err != nil {
			return nil, 0, "", err
		}
		if !plan.IsActive {
			return nil, 0, "", &domain.ErrNotFound{Resource: "plan", ID: req.PlanID}
		}
		return nil, plan.PriceCents, plan.ID, nil
	}

	// Duplicate product ids collapse into quantities.
	quantities := make(map[string]int)
	orderIDs := make([]string, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		if quantities[id] == 0 {
			orderIDs = append(orderIDs, id)
		}
		quantities[id]++
	}

	items := make([]domain.OrderItem, 0, len(orderIDs))
	var totalCents int64
	for _, id := range orderIDs {
		product, err := s.products.GetProduct(ctx, id)
		if err != nil {
			return nil, 0, "", err
		}
		if !product.IsActive {
			return nil, 0, "", &domain.ErrNotFound{Resource: "product", ID: id}
		}
		qty := quantities[id]
		items = append(items, domain.OrderItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   qty,
			PriceCents: product.PriceCents,
		})
		totalCents += product.PriceCents * int64(qty)
	}
	return items, totalCents, "", nil
}
