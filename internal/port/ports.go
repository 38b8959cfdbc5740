// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/pj-cobranca-go/internal/render"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	// GetOrLoad serves key from the cache or from load; hit reports which.
	GetOrLoad(key string, load func() (T, error)) (value T, hit bool, err error)
}

// SlipRenderer writes the printable boleto to path.
type SlipRenderer interface {
	Render(ctx context.Context, s render.Slip, path string) (render.Result, error)
}
