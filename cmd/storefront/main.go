package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vendalivre/storefront-api/internal/config"
	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/handler"
	"github.com/vendalivre/storefront-api/internal/infra/cache"
	"github.com/vendalivre/storefront-api/internal/infra/client"
	"github.com/vendalivre/storefront-api/internal/infra/gateway"
	"github.com/vendalivre/storefront-api/internal/infra/observability"
	"github.com/vendalivre/storefront-api/internal/infra/ratetable"
	"github.com/vendalivre/storefront-api/internal/infra/resilience"
	"github.com/vendalivre/storefront-api/internal/infra/supabase"
	"github.com/vendalivre/storefront-api/internal/port"
	"github.com/vendalivre/storefront-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("origin_cep", cfg.OriginCEP),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("quote_cache_ttl", cfg.QuoteCacheTTL),
		zap.Duration("pix_charge_ttl", cfg.PixChargeTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "storefront-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	cargoCache := cache.New[domain.Cargo](cfg.QuoteCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	gatewayCB := resilience.NewCircuitBreaker("payment-gateway")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	var rates port.RateTable
	if cfg.FreightAPIURL != "" {
		logger.Info("using remote freight API rate table", zap.String("url", cfg.FreightAPIURL))
		freightCB := resilience.NewCircuitBreaker("freight-api")
		rates = client.NewFreightClient(httpClient, cfg.FreightAPIURL, cfg.OriginCEP, freightCB, resilienceCfg)
	} else {
		logger.Info("using static rate table", zap.String("origin_cep", cfg.OriginCEP))
		rates = ratetable.NewStatic(cfg.OriginCEP)
	}

	pixGateway := gateway.NewPixClient(
		httpClient,
		cfg.GatewayURL,
		cfg.GatewayAPIKey,
		cfg.GatewayWebhookSecret,
		cfg.PixChargeTTL,
		gatewayCB,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	shippingSvc := service.NewShippingService(
		store, store, store,
		rates,
		cargoCache,
		metrics,
		logger,
		cfg.OriginCEP,
		cfg.DefaultShippingProfileID,
	)

	svcs := handler.Services{
		Shipping: shippingSvc,
		Profiles: service.NewProfileService(store, cargoCache, logger),
		Catalog:  service.NewCatalogService(store, store),
		Checkout: service.NewCheckoutService(shippingSvc, store, store, store, logger),
		Payments: service.NewPaymentService(store, store, pixGateway, logger, cfg.PixChargeTTL),
		Auth:     service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger),
	}

	// --- Router ---
	router := handler.NewRouter(svcs, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
