package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/vendalivre/storefront-api/internal/domain"

	"go.uber.org/zap"
)

type mockOrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderStore) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *order
	m.orders[order.ID] = &stored
	return &stored, nil
}

func (m *mockOrderStore) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, &domain.ErrNotFound{Resource: "order", ID: orderID}
}

func (m *mockOrderStore) ListOrders(_ context.Context, customerID string, _, _ int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderStore) UpdateOrderStatus(_ context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return &domain.ErrNotFound{Resource: "order", ID: orderID}
	}
	o.Status = status
	return nil
}

func checkoutFixture() (*CheckoutService, *mockOrderStore) {
	profiles := &mockProfileRepo{profiles: map[string]*domain.ShippingProfile{
		"box": testProfile("box", 2.0, true),
	}}
	products := &mockProductRepo{products: map[string]*domain.Product{
		"prod-1": {ID: "prod-1", Name: "Camiseta", PriceCents: 4990, ShippingProfileID: "box", IsActive: true},
		"prod-2": {ID: "prod-2", Name: "Caneca", PriceCents: 2990, ShippingProfileID: "box", IsActive: true},
	}}
	plans := &mockPlanRepo{plans: map[string]*domain.Plan{
		"plan-1": {ID: "plan-1", Name: "Assinatura", PriceCents: 9990, ShippingProfileID: "box", IsActive: true},
	}}
	shipping := newTestShippingService(profiles, products, plans)
	orders := newMockOrderStore()
	svc := NewCheckoutService(shipping, products, plans, orders, zap.NewNop())
	return svc, orders
}

func quoteOptionFor(t *testing.T, svc *CheckoutService, req *domain.QuoteRequest) domain.QuoteOption {
	t.Helper()
	options, err := svc.shipping.CalculateShipping(context.Background(), req, false)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	return options[0]
}

func TestCheckout_ProductOrder(t *testing.T) {
	svc, _ := checkoutFixture()
	opt := quoteOptionFor(t, svc, &domain.QuoteRequest{
		DestinationCEP: "01310100",
		ProductIDs:     []string{"prod-1", "prod-2"},
	})

	order, err := svc.Checkout(context.Background(), "cust-1", &domain.CheckoutRequest{
		ProductIDs:       []string{"prod-1", "prod-2"},
		DestinationCEP:   "01310100",
		SelectedOptionID: opt.OptionID,
	}, false)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Status != domain.OrderStatusPendingPayment {
		t.Errorf("status = %q, want pending_payment", order.Status)
	}
	if order.ItemsCents != 4990+2990 {
		t.Errorf("items_cents = %d, want %d", order.ItemsCents, 4990+2990)
	}
	wantFreight := int64(math.Round(opt.Price * 100))
	if order.FreightCents != wantFreight {
		t.Errorf("freight_cents = %d, want %d", order.FreightCents, wantFreight)
	}
	if order.TotalCents != order.ItemsCents+order.FreightCents {
		t.Errorf("total = %d, want items+freight", order.TotalCents)
	}
	if order.ShippingData == nil {
		t.Fatal("order missing shipping snapshot")
	}
	if order.ShippingData.OptionID != opt.OptionID || order.ShippingData.Price != opt.Price {
		t.Errorf("snapshot %+v does not match selected option %+v", order.ShippingData, opt)
	}
}

func TestCheckout_DuplicateProductsBecomeQuantity(t *testing.T) {
	svc, _ := checkoutFixture()
	basket := []string{"prod-1", "prod-1", "prod-2"}
	opt := quoteOptionFor(t, svc, &domain.QuoteRequest{DestinationCEP: "01310100", ProductIDs: basket})

	order, err := svc.Checkout(context.Background(), "cust-1", &domain.CheckoutRequest{
		ProductIDs:       basket,
		DestinationCEP:   "01310100",
		SelectedOptionID: opt.OptionID,
	}, false)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2 distinct lines", len(order.Items))
	}
	for _, item := range order.Items {
		if item.ProductID == "prod-1" && item.Quantity != 2 {
			t.Errorf("prod-1 quantity = %d, want 2", item.Quantity)
		}
	}
	if order.ItemsCents != 2*4990+2990 {
		t.Errorf("items_cents = %d, want %d", order.ItemsCents, 2*4990+2990)
	}
}

func TestCheckout_PlanOrder(t *testing.T) {
	svc, _ := checkoutFixture()
	opt := quoteOptionFor(t, svc, &domain.QuoteRequest{DestinationCEP: "01310100", PlanID: "plan-1"})

	order, err := svc.Checkout(context.Background(), "cust-1", &domain.CheckoutRequest{
		PlanID:           "plan-1",
		DestinationCEP:   "01310100",
		SelectedOptionID: opt.OptionID,
	}, false)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.PlanID != "plan-1" {
		t.Errorf("plan_id = %q", order.PlanID)
	}
	if order.ItemsCents != 9990 {
		t.Errorf("items_cents = %d, want 9990", order.ItemsCents)
	}
}

func TestCheckout_InvalidOption(t *testing.T) {
	svc, _ := checkoutFixture()

	_, err := svc.Checkout(context.Background(), "cust-1", &domain.CheckoutRequest{
		ProductIDs:       []string{"prod-1"},
		DestinationCEP:   "01310100",
		SelectedOptionID: "made-up-option",
	}, false)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found for unknown option, got %v", err)
	}
}

func TestCheckout_Validation(t *testing.T) {
	svc, _ := checkoutFixture()

	cases := []struct {
		name string
		req  domain.CheckoutRequest
	}{
		{"no option", domain.CheckoutRequest{ProductIDs: []string{"prod-1"}, DestinationCEP: "01310100"}},
		{"no basket", domain.CheckoutRequest{DestinationCEP: "01310100", SelectedOptionID: "x"}},
		{"both sources", domain.CheckoutRequest{ProductIDs: []string{"prod-1"}, PlanID: "plan-1", DestinationCEP: "01310100", SelectedOptionID: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Checkout(context.Background(), "cust-1", &tc.req, false)
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCheckout_RequiresCustomer(t *testing.T) {
	svc, _ := checkoutFixture()

	_, err := svc.Checkout(context.Background(), "", &domain.CheckoutRequest{
		ProductIDs:       []string{"prod-1"},
		DestinationCEP:   "01310100",
		SelectedOptionID: "x",
	}, false)
	var ua *domain.ErrUnauthorized
	if !errors.As(err, &ua) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCheckout_AdminFreeShipping(t *testing.T) {
	svc, _ := checkoutFixture()

	order, err := svc.Checkout(context.Background(), "admin-1", &domain.CheckoutRequest{
		ProductIDs:       []string{"prod-1"},
		DestinationCEP:   "01310100",
		SelectedOptionID: FreeShippingOptionID,
	}, true)
	if err != nil {
		t.Fatalf("admin checkout with free shipping: %v", err)
	}
	if order.FreightCents != 0 {
		t.Errorf("freight_cents = %d, want 0", order.FreightCents)
	}
	if order.TotalCents != order.ItemsCents {
		t.Errorf("total should equal items for free shipping")
	}
}

func TestGetOrder_OwnerOnly(t *testing.T) {
	svc, _ := checkoutFixture()
	opt := quoteOptionFor(t, svc, &domain.QuoteRequest{DestinationCEP: "01310100", ProductIDs: []string{"prod-1"}})

	order, err := svc.Checkout(context.Background(), "cust-1", &domain.CheckoutRequest{
		ProductIDs:       []string{"prod-1"},
		DestinationCEP:   "01310100",
		SelectedOptionID: opt.OptionID,
	}, false)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := svc.GetOrder(context.Background(), "cust-1", order.ID, false); err != nil {
		t.Errorf("owner read: %v", err)
	}

	_, err = svc.GetOrder(context.Background(), "cust-2", order.ID, false)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("other customer should get not-found, got %v", err)
	}

	if _, err := svc.GetOrder(context.Background(), "cust-2", order.ID, true); err != nil {
		t.Errorf("admin read: %v", err)
	}
}
