// Package supabase is the PostgREST-backed CobrancaStore. Every call goes
// through a circuit breaker, retry with backoff and a concurrency cap.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewClient creates a Supabase client. metrics may be nil.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:        metrics,
		logger:         logger,
	}
}

// call runs fn under the bulkhead, breaker and retry policy and maps the
// outcome to domain errors. Not-found and bad-request answers are returned
// as they are; transport failures become *domain.ErrExternalService.
func (c *Client) call(ctx context.Context, resource string, fn func() error) error {
	err := c.bulkhead.Do(ctx, func() error {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
		})
		return err
	})
	if err == nil {
		return nil
	}

	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}
	var ve *domain.ErrValidation
	if errors.As(err, &ve) {
		return ve
	}

	if c.metrics != nil {
		c.metrics.IncrExternalError("supabase")
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	return &domain.ErrExternalService{Service: "supabase/" + resource, Err: err}
}

// statusError classifies a non-2xx PostgREST answer. 4xx answers are not
// retried.
func statusError(method, path string, status int, body []byte) error {
	err := fmt.Errorf("supabase %s %s returned %d: %s", method, path, status, string(body))
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}
