// Package book implements the per-symbol order book: a price-level ladder
// on each side plus an order index: O(1) head read/pop, O(1) interior
// removal by handle, price-time priority iteration.
package book

import (
	"time"

	"clobengine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

type ladder = btree.BTreeG[*PriceLevel]

// indexEntry is the O(1) cancellation handle: side tells which ladder to
// search, node is the intrusive list entry, level is its owning price
// level (kept alongside node so cancel doesn't need a ladder lookup to
// find the level to possibly delete).
type indexEntry struct {
	side  domain.Side
	level *PriceLevel
	node  *node
}

// OrderBook is the authoritative state of one symbol: two ordered price
// ladders plus an order-id index. All mutation happens under the caller's
// lock (the MatchingEngine owns the concurrency discipline) — OrderBook
// itself is not safe for concurrent use.
type OrderBook struct {
	Symbol string
	bids   *ladder // ordered highest price first
	asks   *ladder // ordered lowest price first
	index  map[string]*indexEntry
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price.GreaterThan(b.Price)
		}),
		asks: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price.LessThan(b.Price)
		}),
		index: make(map[string]*indexEntry),
	}
}

func (b *OrderBook) ladderFor(side domain.Side) *ladder {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

// oppositeLadder returns the ladder a taker on side `side` matches against.
func (b *OrderBook) oppositeLadder(side domain.Side) *ladder {
	return b.ladderFor(side.Opposite())
}

// BestBidPrice returns the highest resting buy price, if any.
func (b *OrderBook) BestBidPrice() (decimal.Decimal, bool) {
	lvl, ok := b.bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

// BestAskPrice returns the lowest resting sell price, if any.
func (b *OrderBook) BestAskPrice() (decimal.Decimal, bool) {
	lvl, ok := b.asks.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

// BBO returns the current best bid/offer with aggregate quantities at
// those prices.
func (b *OrderBook) BBO() domain.BBO {
	bbo := domain.BBO{Symbol: b.Symbol, Timestamp: time.Now().UTC()}
	if lvl, ok := b.bids.Min(); ok {
		p := lvl.Price
		bbo.BestBid = &p
		bbo.BestBidQuantity = lvl.TotalQuantity
	}
	if lvl, ok := b.asks.Min(); ok {
		p := lvl.Price
		bbo.BestAsk = &p
		bbo.BestAskQuantity = lvl.TotalQuantity
	}
	return bbo
}

// L2Snapshot returns up to depth (price, aggregate quantity) tuples per
// side, best price first.
func (b *OrderBook) L2Snapshot(depth int) domain.L2Snapshot {
	snap := domain.L2Snapshot{Symbol: b.Symbol, Timestamp: time.Now().UTC()}
	if depth <= 0 {
		depth = 10
	}
	n := 0
	b.bids.Scan(func(lvl *PriceLevel) bool {
		if n >= depth {
			return false
		}
		snap.Bids = append(snap.Bids, domain.PriceLevelView{Price: lvl.Price, Quantity: lvl.TotalQuantity})
		n++
		return true
	})
	n = 0
	b.asks.Scan(func(lvl *PriceLevel) bool {
		if n >= depth {
			return false
		}
		snap.Asks = append(snap.Asks, domain.PriceLevelView{Price: lvl.Price, Quantity: lvl.TotalQuantity})
		n++
		return true
	})
	return snap
}

// AddResting inserts a LIMIT order with remaining > 0 into its side's
// ladder, creating the price level lazily if this is the first order at
// that price.
func (b *OrderBook) AddResting(o *domain.Order) {
	l := b.ladderFor(o.Side)
	probe := &PriceLevel{Price: o.Price}
	lvl, ok := l.Get(probe)
	if !ok {
		lvl = newPriceLevel(o.Price)
		l.Set(lvl)
	}
	n := lvl.append(o)
	b.index[o.ID] = &indexEntry{side: o.Side, level: lvl, node: n}
}

// Cancel removes a resting order by id. Returns domain.ErrOrderNotFound if
// the order is not resting (never submitted, already terminal, or already
// matched away).
func (b *OrderBook) Cancel(orderID string) (*domain.Order, error) {
	entry, ok := b.index[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order := entry.node.order
	entry.level.unlink(entry.node)
	delete(b.index, orderID)
	if entry.level.isEmpty() {
		b.ladderFor(entry.side).Delete(entry.level)
	}
	order.Status = domain.Cancelled
	return order, nil
}

// PeekOppositeHead returns the earliest-priority resting order on the side
// opposite `side`, without consuming it, plus that level's price. ok is
// false if the opposite side is empty.
func (b *OrderBook) PeekOppositeHead(side domain.Side) (maker *domain.Order, levelPrice decimal.Decimal, ok bool) {
	lvl, found := b.oppositeLadder(side).Min()
	if !found {
		return nil, decimal.Zero, false
	}
	return lvl.peekHead(), lvl.Price, true
}

// ConsumeOppositeHead fills qty against the head of the best opposite
// level, removing the maker from the index and the level from the ladder
// if it is now fully filled or the level is drained. qty must not exceed
// the head order's remaining quantity.
func (b *OrderBook) ConsumeOppositeHead(side domain.Side, qty decimal.Decimal) *domain.Order {
	oppSide := side.Opposite()
	l := b.ladderFor(oppSide)
	lvl, found := l.Min()
	if !found {
		panic("book: ConsumeOppositeHead called on empty side")
	}
	maker, filled := lvl.consumeHead(qty)
	if filled {
		delete(b.index, maker.ID)
	}
	if lvl.isEmpty() {
		l.Delete(lvl)
	}
	return maker
}

// MarketableQuantity sums the resting quantity on the side opposite
// `side` that is price-compatible with `limit` (nil means unbounded, as
// for MARKET orders), used by the FOK pre-match dry run. It stops at the
// first level whose price violates the limit,
// since levels are visited best-to-worst and no better-priced level
// remains beyond that point.
func (b *OrderBook) MarketableQuantity(side domain.Side, limit *decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	b.oppositeLadder(side).Scan(func(lvl *PriceLevel) bool {
		if limit != nil {
			if side == domain.Buy && lvl.Price.GreaterThan(*limit) {
				return false
			}
			if side == domain.Sell && lvl.Price.LessThan(*limit) {
				return false
			}
		}
		sum = sum.Add(lvl.TotalQuantity)
		return true
	})
	return sum
}

// IsEmpty reports whether the book has no resting orders on either side.
func (b *OrderBook) IsEmpty() bool {
	return len(b.index) == 0
}

// Snapshot returns a full copy of the resting order state, used to persist
// a recovery point.
func (b *OrderBook) Snapshot() *domain.BookSnapshot {
	snap := &domain.BookSnapshot{Symbol: b.Symbol, Timestamp: time.Now().UTC()}
	b.bids.Scan(func(lvl *PriceLevel) bool {
		for n := lvl.head; n != nil; n = n.next {
			snap.Bids = append(snap.Bids, *n.order)
		}
		return true
	})
	b.asks.Scan(func(lvl *PriceLevel) bool {
		for n := lvl.head; n != nil; n = n.next {
			snap.Asks = append(snap.Asks, *n.order)
		}
		return true
	})
	return snap
}

// RestoreFrom rebuilds the ladders and index from a snapshot. It refuses
// to run against a book that already has resting orders (see DESIGN.md
// "Restore-into-live-book").
func (b *OrderBook) RestoreFrom(snap *domain.BookSnapshot) error {
	if !b.IsEmpty() {
		return domain.ErrBookNotEmpty
	}
	for i := range snap.Bids {
		o := snap.Bids[i]
		b.AddResting(&o)
	}
	for i := range snap.Asks {
		o := snap.Asks[i]
		b.AddResting(&o)
	}
	return nil
}
