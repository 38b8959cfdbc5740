package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/auth"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/port"
	"github.com/boddenberg/pj-cobranca-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups the application services the router dispatches to.
type Services struct {
	Boletos  *service.BoletoService
	Remessas *service.RemessaService
	Retornos *service.RetornoService
}

// NewRouter creates the HTTP router with all routes and middleware.
// A nil verifier leaves the cobrança routes unauthenticated.
func NewRouter(svc Services, store port.CobrancaStore, verifier *auth.Verifier, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/v1/metrics/cobranca", cobrancaMetricsHandler(metrics))

	// --- Cobrança ---
	r.Group(func(r chi.Router) {
		if verifier != nil {
			r.Use(JWTAuthMiddleware(verifier, logger))
		}

		// =============================================
		// Titulos
		// =============================================
		r.Post("/titulo/{id}/gerar/", gerarBoletoHandler(svc.Boletos, logger))
		r.Get("/titulo/{id}/consultar/", consultarTituloHandler(svc.Boletos, logger))
		r.Post("/titulo/{id}/cancelar/", cancelarTituloHandler(svc.Boletos, logger))

		// =============================================
		// CNAB
		// =============================================
		r.Post("/bordero/{id}/remessa/", remessaBorderoHandler(svc.Remessas, logger))
		r.Post("/retorno/", retornoHandler(svc.Retornos, logger))

		// =============================================
		// Stateless boleto tools
		// =============================================
		r.Post("/boletos/validar", validarBoletoHandler(svc.Boletos, logger))
		r.Post("/boletos/decodificar", decodificarBoletoHandler(svc.Boletos, logger))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler pings the store. Without a store the service only serves the
// stateless endpoints and is always ready.
func readyzHandler(store port.CobrancaStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusOK, domain.HealthStatus{Status: "healthy", Services: []domain.ServiceHealth{}})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		start := time.Now()
		err := store.Ping(ctx)
		check := domain.ServiceHealth{
			Name:        "store",
			Status:      "healthy",
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		if err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			check.Status = "unhealthy"
			check.Detail = err.Error()
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, domain.HealthStatus{Status: check.Status, Services: []domain.ServiceHealth{check}})
	}
}

func cobrancaMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
