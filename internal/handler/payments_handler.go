package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// webhookSignatureHeader carries the gateway's HMAC-SHA256 of the raw body.
const webhookSignatureHeader = "X-Webhook-Signature"

// ============================================================
// PIX payments
// ============================================================

func createPixChargeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments/pix")
		defer span.End()

		var req domain.CreatePixChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("order.id", req.OrderID))

		charge, err := svc.CreatePixCharge(ctx, CustomerIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, charge)
	}
}

func getPixChargeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments/pix/{chargeId}")
		defer span.End()

		chargeID := chi.URLParam(r, "chargeId")
		span.SetAttributes(attribute.String("charge.id", chargeID))

		charge, err := svc.GetPixCharge(ctx, CustomerIDFromContext(ctx), chargeID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, charge)
	}
}

// paymentWebhookHandler is unauthenticated; the HMAC signature in the
// request header is the only trust anchor.
func paymentWebhookHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/payments")
		defer span.End()

		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "cannot read request body")
			return
		}

		if err := svc.ProcessWebhook(ctx, payload, r.Header.Get(webhookSignatureHeader)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"status": "acknowledged"})
	}
}
