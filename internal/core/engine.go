// Package core wires the order book and the matching algorithm into a
// MatchingEngine: the registry of per-symbol books, the concurrency
// discipline around them, and the event/persistence fan-out that happens
// once a submission's critical section has closed.
package core

import (
	"context"
	"sync"
	"time"

	"clobengine/internal/book"
	"clobengine/internal/domain"
	"clobengine/internal/port"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// bookState pairs one symbol's OrderBook with the mutex that serializes all
// access to it. Every symbol gets its own mutex so that two symbols can
// match concurrently — only the registry lookup itself is shared, and it is
// guarded separately and far more briefly.
type bookState struct {
	mu   sync.Mutex
	book *book.OrderBook
}

// MatchingEngine is the top-level entry point: Submit, Cancel and the
// read-only BBO/L2 queries. It owns no transport concerns.
type MatchingEngine struct {
	registryMu sync.RWMutex
	books      map[string]*bookState

	seq *Sequencer

	sinksMu    sync.Mutex
	tradeSinks []TradeSink
	bboSinks   []BBOSink

	repo port.Repository
	log  zerolog.Logger
}

// NewMatchingEngine builds an engine with no resting state. repo may be nil,
// in which case Submit/Cancel skip persistence entirely (useful for tests
// and for the in-memory-only deployment mode).
func NewMatchingEngine(repo port.Repository, log zerolog.Logger) *MatchingEngine {
	return &MatchingEngine{
		books: make(map[string]*bookState),
		seq:   NewSequencer(),
		repo:  repo,
		log:   log,
	}
}

// getOrCreateBook returns the bookState for symbol, creating it under a
// write lock if this is the first order ever seen for that symbol.
// Double-checked locking keeps the common case (book already exists) on
// the cheap read lock.
func (e *MatchingEngine) getOrCreateBook(symbol string) *bookState {
	e.registryMu.RLock()
	bs, ok := e.books[symbol]
	e.registryMu.RUnlock()
	if ok {
		return bs
	}

	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	if bs, ok := e.books[symbol]; ok {
		return bs
	}
	bs = &bookState{book: book.NewOrderBook(symbol)}
	e.books[symbol] = bs
	return bs
}

// lookupBook returns the bookState for symbol without creating one.
func (e *MatchingEngine) lookupBook(symbol string) (*bookState, bool) {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()
	bs, ok := e.books[symbol]
	return bs, ok
}

// SubmitResult is the outcome of one Submit call: the accepted (and
// possibly now-filled or now-resting) order, any trades it generated, and
// the resulting BBO for the symbol so callers can publish it without a
// second round trip.
type SubmitResult struct {
	Order  *domain.Order
	Trades []domain.Trade
	BBO    domain.BBO
}

// Submit accepts a new order, validates it, stamps it with the
// engine-wide sequencer, and runs it against the book for its symbol.
// Validation runs before any lock is taken; the owning book's mutex is held
// for the sequencing-through-match span only;
// persistence and sink dispatch happen after it is released, so a slow
// repository or a slow subscriber never delays a concurrent submission on
// a different symbol.
//
// A validation failure is not an engine error: it is recovered locally and
// returned as a REJECTED SubmitResult so the transport layer can serialize
// it as an ordinary submit result instead of an error response.
func (e *MatchingEngine) Submit(ctx context.Context, o *domain.Order) (*SubmitResult, error) {
	if err := o.Validate(); err != nil {
		o.Status = domain.Rejected
		o.RemainingQuantity = o.OriginalQuantity
		o.Timestamp = time.Now().UTC()
		return &SubmitResult{Order: o}, nil
	}

	bs := e.getOrCreateBook(o.Symbol)

	bs.mu.Lock()
	preBBO := bs.book.BBO()

	ts, sequence := e.seq.Next()
	o.Timestamp = ts
	o.Sequence = sequence
	o.Status = domain.Pending
	o.RemainingQuantity = o.OriginalQuantity

	trades := runMatch(bs.book, o, e.seq)
	bbo := bs.book.BBO()
	bs.mu.Unlock()

	e.persistSubmit(ctx, o, trades)
	e.dispatchTrades(trades)
	if bboChanged(preBBO, bbo) {
		e.dispatchBBO(o.Symbol, bbo)
	}

	return &SubmitResult{Order: o, Trades: trades, BBO: bbo}, nil
}

// persistSubmit writes the accepted order and any resulting trades to the
// repository, if one is configured. Failures are logged, not returned: the
// match has already happened and cannot be rolled back by a persistence
// error.
func (e *MatchingEngine) persistSubmit(ctx context.Context, o *domain.Order, trades []domain.Trade) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveOrder(ctx, o); err != nil {
		e.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to persist order")
	}
	for i := range trades {
		if err := e.repo.SaveTrade(ctx, &trades[i]); err != nil {
			e.log.Error().Err(err).Str("trade_id", trades[i].ID).Msg("failed to persist trade")
		}
	}
}

// CancelResult is the outcome of a Cancel call.
type CancelResult struct {
	Order *domain.Order
	BBO   domain.BBO
}

// Cancel removes a resting order from its book, if it is still resting.
func (e *MatchingEngine) Cancel(ctx context.Context, symbol, orderID string) (*CancelResult, error) {
	bs, ok := e.lookupBook(symbol)
	if !ok {
		return nil, domain.ErrSymbolNotFound
	}

	bs.mu.Lock()
	preBBO := bs.book.BBO()
	order, err := bs.book.Cancel(orderID)
	var bbo domain.BBO
	changed := false
	if err == nil {
		bbo = bs.book.BBO()
		changed = bboChanged(preBBO, bbo)
	}
	bs.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if e.repo != nil {
		if err := e.repo.SaveOrder(ctx, order); err != nil {
			e.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to persist cancellation")
		}
	}
	if changed {
		e.dispatchBBO(symbol, bbo)
	}

	return &CancelResult{Order: order, BBO: bbo}, nil
}

// bboChanged reports whether two BBO observations differ on either side's
// best price or quantity. Cancelling or matching against an order that is
// not at the top of book leaves the BBO untouched, and a killed FOK never
// touches the book at all — both cases must produce no BBO event.
func bboChanged(prev, next domain.BBO) bool {
	return !decimalPtrEqual(prev.BestBid, next.BestBid) ||
		!prev.BestBidQuantity.Equal(next.BestBidQuantity) ||
		!decimalPtrEqual(prev.BestAsk, next.BestAsk) ||
		!prev.BestAskQuantity.Equal(next.BestAskQuantity)
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// BBO returns the current best bid/offer for symbol.
func (e *MatchingEngine) BBO(symbol string) (domain.BBO, error) {
	bs, ok := e.lookupBook(symbol)
	if !ok {
		return domain.BBO{}, domain.ErrSymbolNotFound
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.book.BBO(), nil
}

// L2 returns a depth-capped aggregate view of symbol's book.
func (e *MatchingEngine) L2(symbol string, depth int) (domain.L2Snapshot, error) {
	bs, ok := e.lookupBook(symbol)
	if !ok {
		return domain.L2Snapshot{}, domain.ErrSymbolNotFound
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.book.L2Snapshot(depth), nil
}

// SnapshotOrderbook captures the full resting-order state of symbol for
// operational recovery and persists it through the repository.
func (e *MatchingEngine) SnapshotOrderbook(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	bs, ok := e.lookupBook(symbol)
	if !ok {
		return nil, domain.ErrSymbolNotFound
	}
	bs.mu.Lock()
	snap := bs.book.Snapshot()
	bs.mu.Unlock()

	if e.repo != nil {
		if err := e.repo.SaveSnapshot(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// RestoreOrderbook loads symbol's most recent persisted snapshot and
// rebuilds its book from it. It is a cold-start operation: it refuses to
// run against a book that already has resting orders.
func (e *MatchingEngine) RestoreOrderbook(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	if e.repo == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	snap, err := e.repo.LoadSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bs := e.getOrCreateBook(symbol)
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if err := bs.book.RestoreFrom(snap); err != nil {
		return nil, err
	}
	return snap, nil
}
