// Package client provides HTTP adapters for external rate providers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// FreightClient quotes shipping against a remote carrier-pricing API.
// It implements port.RateTable, interchangeable with the static table.
type FreightClient struct {
	httpClient *http.Client
	baseURL    string
	originCEP  string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewFreightClient creates a new FreightClient.
func NewFreightClient(httpClient *http.Client, baseURL, originCEP string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *FreightClient {
	return &FreightClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		originCEP:  originCEP,
		cb:         cb,
		cfg:        cfg,
	}
}

type freightQuoteRequest struct {
	OriginCEP      string  `json:"origin_cep"`
	DestinationCEP string  `json:"destination_cep"`
	WeightKg       float64 `json:"weight_kg"`
	WidthCm        int     `json:"width_cm"`
	HeightCm       int     `json:"height_cm"`
	LengthCm       int     `json:"length_cm"`
}

type freightQuoteOption struct {
	Carrier      string  `json:"carrier"`
	Service      string  `json:"service"`
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"delivery_days"`
}

// Quote fetches carrier options with retry, circuit breaker, and tracing.
func (c *FreightClient) Quote(ctx context.Context, cargo domain.Cargo, destinationCEP string) ([]domain.QuoteOption, error) {
	ctx, span := tracer.Start(ctx, "FreightClient.Quote")
	defer span.End()
	span.SetAttributes(
		attribute.String("shipping.destination_cep", destinationCEP),
		attribute.Float64("shipping.weight_kg", cargo.WeightKg),
	)

	var options []domain.QuoteOption

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			payload, err := json.Marshal(freightQuoteRequest{
				OriginCEP:      c.originCEP,
				DestinationCEP: destinationCEP,
				WeightKg:       cargo.WeightKg,
				WidthCm:        cargo.Dimensions.WidthCm,
				HeightCm:       cargo.Dimensions.HeightCm,
				LengthCm:       cargo.Dimensions.LengthCm,
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/freight/quote", c.baseURL)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("freight API returned status %d", resp.StatusCode)
			}

			var rows []freightQuoteOption
			if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
				return fmt.Errorf("failed to decode freight quote: %w", err)
			}

			options = make([]domain.QuoteOption, 0, len(rows))
			for _, r := range rows {
				options = append(options, domain.QuoteOption{
					OptionID:     fmt.Sprintf("%s-%s", slug(r.Carrier), slug(r.Service)),
					Carrier:      r.Carrier,
					Service:      r.Service,
					Price:        r.Price,
					DeliveryDays: r.DeliveryDays,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "freight", Err: err}
	}

	return options, nil
}

func slug(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		}
	}
	return string(out)
}
