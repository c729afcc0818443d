// Package httpserver wires the bridge's five tools onto an HTTP surface:
// chi router, the teacher's middleware stack (CORS, security headers,
// structured logging, request id, rate limiting, API-key tiers), and
// per-route timeout groups split by how long an operation is allowed to
// take.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/boonlink/bridge/internal/apikey"
	"github.com/boonlink/bridge/internal/config"
	"github.com/boonlink/bridge/internal/idempotency"
	"github.com/boonlink/bridge/internal/logger"
	"github.com/boonlink/bridge/internal/metrics"
	"github.com/boonlink/bridge/internal/ratelimit"
	"github.com/boonlink/bridge/internal/tools"
)

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	httpServer *http.Server
}

type handlers struct {
	cfg     *config.Config
	tools   *tools.Context
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New builds the HTTP server with a configured router.
func New(cfg *config.Config, toolsCtx *tools.Context, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		handlers: handlers{
			cfg:     cfg,
			tools:   toolsCtx,
			metrics: metricsCollector,
			logger:  appLogger,
		},
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
			Handler:      router,
		},
	}

	ConfigureRouter(router, cfg, toolsCtx, idempotencyStore, metricsCollector, appLogger)

	return s
}

// ConfigureRouter attaches bridge routes to an existing router.
func ConfigureRouter(router chi.Router, cfg *config.Config, toolsCtx *tools.Context, idempotencyStore idempotency.Store, metricsCollector *metrics.Metrics, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	handler := handlers{
		cfg:     cfg,
		tools:   toolsCtx,
		metrics: metricsCollector,
		logger:  appLogger,
	}

	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers middleware (applied first for all responses)
	router.Use(securityHeadersMiddleware)

	// Structured logging middleware (BEFORE RequestID for context propagation)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// API key authentication middleware (BEFORE rate limiting). Extracts
	// X-API-Key and stores tier in context for rate-limit exemptions.
	apiKeyCfg := apikey.Config{
		Enabled: cfg.APIKey.Enabled,
		APIKeys: make(map[string]apikey.Tier),
	}
	for key, tierStr := range cfg.APIKey.Keys {
		apiKeyCfg.APIKeys[key] = apikey.Tier(tierStr)
	}
	router.Use(apikey.Middleware(apiKeyCfg))

	rateLimitCfg := ratelimit.Config{
		GlobalEnabled:    cfg.RateLimit.GlobalEnabled,
		GlobalLimit:      cfg.RateLimit.GlobalLimit,
		GlobalWindow:     cfg.RateLimit.GlobalWindow.Duration,
		GlobalBurst:      cfg.RateLimit.GlobalLimit / 10,
		PerWalletEnabled: cfg.RateLimit.PerWalletEnabled,
		PerWalletLimit:   cfg.RateLimit.PerWalletLimit,
		PerWalletWindow:  cfg.RateLimit.PerWalletWindow.Duration,
		PerWalletBurst:   cfg.RateLimit.PerWalletLimit / 6,
		PerIPEnabled:     cfg.RateLimit.PerIPEnabled,
		PerIPLimit:       cfg.RateLimit.PerIPLimit,
		PerIPWindow:      cfg.RateLimit.PerIPWindow.Duration,
		PerIPBurst:       cfg.RateLimit.PerIPLimit / 6,
		Metrics:          metricsCollector,
	}
	router.Use(ratelimit.GlobalLimiter(rateLimitCfg))
	router.Use(ratelimit.WalletLimiter(rateLimitCfg))
	router.Use(ratelimit.IPLimiter(rateLimitCfg))

	prefix := cfg.Server.RoutePrefix

	// Lightweight endpoints with a 5s timeout: health and metrics.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/healthz", handler.health)
		r.With(adminMetricsAuth(cfg.Server.AdminMetricsAPIKey)).Handle(prefix+"/metrics", promhttp.Handler())
	})

	// Idempotency middleware (24h cache), applied only to confirm_payment:
	// the one endpoint that mutates state and is worth deduping against a
	// retried client request.
	idempotencyMW := idempotency.Middleware(idempotencyStore, 24*time.Hour)

	// Bridge tool endpoints with a 60s timeout: blockchain balance reads,
	// RPC broadcasts, and settlement calls all live on this path.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post(prefix+"/v1/scan-qr", handler.scanPromptPayQR)
		r.Post(prefix+"/v1/quote", handler.getCryptoQuote)
		r.With(idempotencyMW).Post(prefix+"/v1/confirm-payment", handler.confirmPayment)
		r.Get(prefix+"/v1/orders/status", handler.checkPaymentStatus)
		r.Get(prefix+"/v1/rates", handler.getExchangeRates)
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
