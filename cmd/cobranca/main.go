package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/auth"
	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/config"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/handler"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/cache"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/memstore"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/resilience"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/supabase"
	"github.com/boddenberg/pj-cobranca-go/internal/port"
	"github.com/boddenberg/pj-cobranca-go/internal/render"
	"github.com/boddenberg/pj-cobranca-go/internal/service"

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
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.String("output_dir", cfg.OutputDir),
		zap.Bool("remessa_fallback", cfg.RemessaFallback),
		zap.Bool("auth", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.TracingEndpoint(), "pj-cobranca")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, err := newStore(cfg, metrics, logger)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}

	// --- Cache ---
	contaCache := cache.New[domain.ContaBancaria](cfg.CacheTTL)
	defer contaCache.Close()
	cedenteCache := cache.New[domain.Cedente](cfg.CacheTTL)
	defer cedenteCache.Close()

	// --- CNAB adapters ---
	var regOpts []cnab.Option
	if !cfg.RemessaFallback {
		regOpts = append(regOpts, cnab.WithoutFallback())
	}
	registry := cnab.NewRegistry(logger, metrics, regOpts...)

	// --- Services ---
	records := service.NewRecords(store, contaCache, cedenteCache, metrics)
	renderer := render.NewSlipRenderer(cfg.AssetsDir, logger)
	svc := handler.Services{
		Boletos:  service.NewBoletoService(store, records, renderer, cfg.OutputDir, metrics, logger),
		Remessas: service.NewRemessaService(store, records, registry, cfg.OutputDir, cfg.MaxConcurrency, metrics, logger),
		Retornos: service.NewRetornoService(store, registry, metrics, logger),
	}

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, cobrança routes are unauthenticated")
	}

	// --- Router ---
	router := handler.NewRouter(svc, store, verifier, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newStore picks Supabase when configured, the in-memory store otherwise.
func newStore(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (port.CobrancaStore, error) {
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			metrics,
			logger,
		), nil
	}

	if cfg.MemstoreSeed == "" {
		logger.Warn("using empty in-memory store")
		return memstore.New(), nil
	}
	logger.Info("using in-memory store", zap.String("seed", cfg.MemstoreSeed))
	return memstore.Load(cfg.MemstoreSeed)
}
