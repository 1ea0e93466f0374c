package port

import (
	"context"
	"time"

	"clobengine/internal/domain"
)

// Cache is a fast, best-effort store for the depth view most consumers
// actually want. Cache errors are advisory: cmd/server refreshes the cache
// from a BBO sink and only logs a failed write, so a cache error never
// fails a submission or cancellation. The refresh runs synchronously in
// that sink, so a slow cache backend delays the return of the call that
// triggered it.
type Cache interface {
	SetL2(ctx context.Context, symbol string, snap *domain.L2Snapshot, ttl time.Duration) error
	GetL2(ctx context.Context, symbol string) (*domain.L2Snapshot, error)
}
