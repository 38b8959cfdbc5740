package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/infra/observability"
	"github.com/boddenberg/pj-cobranca-go/internal/port"
)

// Records loads the master data shared by boleto and remessa generation.
// Bank accounts and cedentes change rarely and are served from the caches.
type Records struct {
	store    port.CobrancaStore
	contas   port.Cache[domain.ContaBancaria]
	cedentes port.Cache[domain.Cedente]
	metrics  *observability.Metrics
}

// NewRecords wires the store with its read caches. Nil caches disable caching.
func NewRecords(store port.CobrancaStore, contas port.Cache[domain.ContaBancaria], cedentes port.Cache[domain.Cedente], metrics *observability.Metrics) *Records {
	return &Records{store: store, contas: contas, cedentes: cedentes, metrics: metrics}
}

func (r *Records) Conta(ctx context.Context, id string) (domain.ContaBancaria, error) {
	c, err := cached(r, r.contas, "conta", id, func() (domain.ContaBancaria, error) {
		c, err := r.store.GetContaBancaria(ctx, id)
		if err != nil {
			return domain.ContaBancaria{}, err
		}
		return *c, nil
	})
	if err != nil {
		return domain.ContaBancaria{}, fmt.Errorf("conta bancaria fetch: %w", err)
	}
	return c, nil
}

func (r *Records) Cedente(ctx context.Context, id string) (domain.Cedente, error) {
	c, err := cached(r, r.cedentes, "cedente", id, func() (domain.Cedente, error) {
		c, err := r.store.GetCedente(ctx, id)
		if err != nil {
			return domain.Cedente{}, err
		}
		return *c, nil
	})
	if err != nil {
		return domain.Cedente{}, fmt.Errorf("cedente fetch: %w", err)
	}
	return c, nil
}

// cached reads kind:id through c and counts the hit or miss. A nil cache
// always loads.
func cached[T any](r *Records, c port.Cache[T], kind, id string, load func() (T, error)) (T, error) {
	if c == nil {
		r.metrics.IncrCacheMiss(kind)
		return load()
	}
	v, hit, err := c.GetOrLoad(kind+":"+id, load)
	if hit {
		r.metrics.IncrCacheHit(kind)
	} else {
		r.metrics.IncrCacheMiss(kind)
	}
	return v, err
}

// Sacado returns nil for titulos without a payer reference.
func (r *Records) Sacado(ctx context.Context, id string) (*domain.Sacado, error) {
	if id == "" {
		return nil, nil
	}
	s, err := r.store.GetSacado(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sacado fetch: %w", err)
	}
	return s, nil
}
