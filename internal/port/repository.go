// Package port declares the interfaces the matching engine depends on and
// never implements itself — persistence and caching live on the far side of
// these seams in internal/adapter, so the engine can run against an
// in-memory stub in tests and a real database in production without
// changing a line of matching logic.
package port

import (
	"context"

	"clobengine/internal/domain"
)

// Repository is the durable store for orders, trades and recovery
// snapshots. Every method is called after the engine has released the
// owning book's lock — implementations are free to block on I/O without
// stalling matching.
type Repository interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error)

	SaveSnapshot(ctx context.Context, snap *domain.BookSnapshot) error
	LoadSnapshot(ctx context.Context, symbol string) (*domain.BookSnapshot, error)
}
