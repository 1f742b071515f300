package gateway_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vendalivre/storefront-api/internal/infra/gateway"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *gateway.PixClient {
	t.Helper()
	return gateway.NewPixClient(
		&http.Client{Timeout: 2 * time.Second},
		baseURL,
		"test-api-key",
		"test-webhook-secret",
		30*time.Minute,
		resilience.NewCircuitBreaker("gateway-test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond},
		zap.NewNop(),
	)
}

func TestCreateCharge_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/pix/charges" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-api-key" {
			t.Error("missing gateway api key")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"gw-1","qr_code":"qr-data","copy_paste_code":"0002012658...","expires_at":"2026-01-02T15:04:05Z"}`))
	}))
	defer srv.Close()

	charge, err := newTestClient(t, srv.URL).CreateCharge(context.Background(), "order-1", 15990)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if charge.GatewayID != "gw-1" {
		t.Errorf("expected gateway id 'gw-1', got '%s'", charge.GatewayID)
	}
	if charge.QRCode != "qr-data" {
		t.Errorf("unexpected qr code '%s'", charge.QRCode)
	}
}

func TestCreateCharge_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).CreateCharge(context.Background(), "order-1", 100)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestVerifySignature(t *testing.T) {
	c := newTestClient(t, "http://unused")
	payload := []byte(`{"event":"charge.paid","gateway_id":"gw-1"}`)

	mac := hmac.New(sha256.New, []byte("test-webhook-secret"))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifySignature(payload, valid) {
		t.Error("expected valid signature to verify")
	}
	if c.VerifySignature(payload, "deadbeef") {
		t.Error("expected invalid signature to fail")
	}
	if c.VerifySignature(payload, "") {
		t.Error("expected empty signature to fail")
	}
}
