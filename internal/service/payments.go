package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var paymentTracer = otel.Tracer("service/payments")

// PaymentService creates PIX charges for orders and processes gateway
// webhooks.
type PaymentService struct {
	store   port.PaymentStore
	orders  port.OrderStore
	gateway port.PaymentGateway
	logger  *zap.Logger

	chargeTTL time.Duration
}

// NewPaymentService creates the payment service.
func NewPaymentService(store port.PaymentStore, orders port.OrderStore, gateway port.PaymentGateway, logger *zap.Logger, chargeTTL time.Duration) *PaymentService {
	return &PaymentService{
		store:     store,
		orders:    orders,
		gateway:   gateway,
		logger:    logger,
		chargeTTL: chargeTTL,
	}
}

// CreatePixCharge creates (or recovers) a PIX charge for an order.
// Asking to pay the same order again while a pending charge is still
// valid returns the existing charge instead of creating a duplicate at
// the gateway.
func (s *PaymentService) CreatePixCharge(ctx context.Context, customerID string, req *domain.CreatePixChargeRequest) (*domain.PixCharge, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.CreatePixCharge")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", customerID),
		attribute.String("order.id", req.OrderID),
	)

	if req.OrderID == "" {
		return nil, &domain.ErrValidation{Field: "order_id", Message: "required"}
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, &domain.ErrNotFound{Resource: "order", ID: req.OrderID}
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return nil, &domain.ErrConflict{Message: "order is not awaiting payment"}
	}

	now := time.Now().UTC()
	if pending, err := s.store.GetPendingPixCharge(ctx, customerID, req.OrderID, now); err != nil {
		return nil, err
	} else if pending != nil {
		s.logger.Info("reusing pending pix charge",
			zap.String("charge_id", pending.ID),
			zap.String("order_id", req.OrderID),
		)
		return pending, nil
	}

	gwCharge, err := s.gateway.CreateCharge(ctx, order.ID, order.TotalCents)
	if err != nil {
		s.logger.Error("gateway charge creation failed",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, err
	}

	expiresAt := gwCharge.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.chargeTTL)
	}

	charge := &domain.PixCharge{
		ID:            uuid.New().String(),
		GatewayID:     gwCharge.GatewayID,
		OrderID:       order.ID,
		CustomerID:    customerID,
		AmountCents:   order.TotalCents,
		Status:        domain.PixChargeStatusPending,
		QRCode:        gwCharge.QRCode,
		CopyPasteCode: gwCharge.CopyPasteCode,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
	}

	created, err := s.store.CreatePixCharge(ctx, charge)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pix charge created",
		zap.String("charge_id", created.ID),
		zap.String("order_id", order.ID),
		zap.Int64("amount_cents", created.AmountCents),
	)
	return created, nil
}

// GetPixCharge returns a charge, restricted to its owner. Expiration is
// evaluated lazily on read.
func (s *PaymentService) GetPixCharge(ctx context.Context, customerID, chargeID string) (*domain.PixCharge, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.GetPixCharge")
	defer span.End()
	span.SetAttributes(attribute.String("charge.id", chargeID))

	charge, err := s.store.GetPixCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if charge.CustomerID != customerID {
		return nil, &domain.ErrNotFound{Resource: "pix charge", ID: chargeID}
	}

	if charge.Status == domain.PixChargeStatusPending && time.Now().After(charge.ExpiresAt) {
		if err := s.store.UpdatePixChargeStatus(ctx, charge.ID, domain.PixChargeStatusExpired, nil); err != nil {
			s.logger.Warn("failed to mark charge expired", zap.String("charge_id", charge.ID), zap.Error(err))
		} else {
			charge.Status = domain.PixChargeStatusExpired
		}
	}

	return charge, nil
}

// ProcessWebhook verifies the gateway signature and applies a charge
// status event. Paid charges flip their order to paid; replayed events
// are acknowledged without side effects.
func (s *PaymentService) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.ProcessWebhook")
	defer span.End()

	if !s.gateway.VerifySignature(payload, signature) {
		return &domain.ErrUnauthorized{Message: "invalid webhook signature"}
	}

	var event domain.PaymentWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "malformed webhook payload"}
	}
	if event.GatewayID == "" {
		return &domain.ErrValidation{Field: "gateway_id", Message: "required"}
	}

	charge, err := s.store.GetPixChargeByGatewayID(ctx, event.GatewayID)
	if err != nil {
		return err
	}

	switch event.Status {
	case domain.PixChargeStatusPaid:
		if charge.Status == domain.PixChargeStatusPaid {
			// Replay; nothing to do.
			return nil
		}
		paidAt := time.Now().UTC()
		if event.PaidAt != "" {
			if t, err := time.Parse(time.RFC3339, event.PaidAt); err == nil {
				paidAt = t
			}
		}
		if err := s.store.UpdatePixChargeStatus(ctx, charge.ID, domain.PixChargeStatusPaid, &paidAt); err != nil {
			return err
		}
		if err := s.orders.UpdateOrderStatus(ctx, charge.OrderID, domain.OrderStatusPaid); err != nil {
			s.logger.Error("charge paid but order update failed",
				zap.String("charge_id", charge.ID),
				zap.String("order_id", charge.OrderID),
				zap.Error(err),
			)
			return err
		}
		s.logger.Info("pix charge paid",
			zap.String("charge_id", charge.ID),
			zap.String("order_id", charge.OrderID),
		)
		return nil

	case domain.PixChargeStatusExpired, domain.PixChargeStatusRefunded:
		if charge.Status == event.Status {
			return nil
		}
		if err := s.store.UpdatePixChargeStatus(ctx, charge.ID, event.Status, nil); err != nil {
			return err
		}
		s.logger.Info("pix charge status updated",
			zap.String("charge_id", charge.ID),
			zap.String("status", event.Status),
		)
		return nil

	default:
		return &domain.ErrValidation{Field: "status", Message: "unknown charge status"}
	}
}
