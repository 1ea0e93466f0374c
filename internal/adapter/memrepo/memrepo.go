// Package memrepo is an in-process Repository, used in the default
// no-database deployment mode.
package memrepo

import (
	"context"
	"sync"

	"clobengine/internal/domain"
	"clobengine/internal/port"
)

type Repo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	trades    map[string][]*domain.Trade
	snapshots map[string]*domain.BookSnapshot
}

var _ port.Repository = (*Repo)(nil)

func New() *Repo {
	return &Repo{
		orders:    make(map[string]*domain.Order),
		trades:    make(map[string][]*domain.Trade),
		snapshots: make(map[string]*domain.BookSnapshot),
	}
}

func (r *Repo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *Repo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.trades[t.MakerOrderID] = append(r.trades[t.MakerOrderID], &cp)
	r.trades[t.TakerOrderID] = append(r.trades[t.TakerOrderID], &cp)
	return nil
}

func (r *Repo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Symbol == symbol && (o.Status == domain.Pending || o.Status == domain.Partial) {
			res = append(res, o)
		}
	}
	return res, nil
}

func (r *Repo) SaveSnapshot(ctx context.Context, snap *domain.BookSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snap.Symbol] = snap.DeepCopy()
	return nil
}

func (r *Repo) LoadSnapshot(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snapshots[symbol]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap.DeepCopy(), nil
}
