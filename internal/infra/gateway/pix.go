// Package gateway wraps the third-party PIX payment processor.
// The processor is an external collaborator: charges are created over
// its HTTP API and confirmations arrive via signed webhooks.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("gateway")

// PixClient creates PIX QR charges at the payment gateway.
type PixClient struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	chargeTTL     time.Duration
	cb            *gobreaker.CircuitBreaker
	cfg           resilience.Config
	logger        *zap.Logger
}

// NewPixClient creates a gateway client.
func NewPixClient(httpClient *http.Client, baseURL, apiKey, webhookSecret string, chargeTTL time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *PixClient {
	return &PixClient{
		httpClient:    httpClient,
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		chargeTTL:     chargeTTL,
		cb:            cb,
		cfg:           cfg,
		logger:        logger,
	}
}

type gatewayChargeRequest struct {
	ReferenceID    string `json:"reference_id"`
	AmountCents    int64  `json:"amount_cents"`
	ExpiresSeconds int    `json:"expires_seconds"`
}

type gatewayChargeResponse struct {
	ID            string `json:"id"`
	QRCode        string `json:"qr_code"`
	CopyPasteCode string `json:"copy_paste_code"`
	ExpiresAt     string `json:"expires_at"`
}

// CreateCharge creates a PIX charge with retry, circuit breaker, and tracing.
func (c *PixClient) CreateCharge(ctx context.Context, orderID string, amountCents int64) (*domain.GatewayCharge, error) {
	ctx, span := tracer.Start(ctx, "PixClient.CreateCharge")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("charge.amount_cents", amountCents),
	)

	var charge *domain.GatewayCharge

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			payload, err := json.Marshal(gatewayChargeRequest{
				ReferenceID:    orderID,
				AmountCents:    amountCents,
				ExpiresSeconds: int(c.chargeTTL.Seconds()),
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/pix/charges", c.baseURL)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

			resp, err := c.httpClient.Do(req)
			if err != nil {
				c.logger.Error("gateway: charge request failed",
					zap.String("order_id", orderID),
					zap.Error(err),
				)
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
				return fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
			}

			var body gatewayChargeResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("failed to decode gateway charge: %w", err)
			}

			expiresAt, err := time.Parse(time.RFC3339, body.ExpiresAt)
			if err != nil {
				expiresAt = time.Now().Add(c.chargeTTL)
			}

			charge = &domain.GatewayCharge{
				GatewayID:     body.ID,
				QRCode:        body.QRCode,
				CopyPasteCode: body.CopyPasteCode,
				ExpiresAt:     expiresAt,
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "payment-gateway", Err: err}
	}

	return charge, nil
}

// VerifySignature checks the gateway's HMAC-SHA256 webhook signature
// (hex-encoded). Comparison is constant-time.
func (c *PixClient) VerifySignature(payload []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
