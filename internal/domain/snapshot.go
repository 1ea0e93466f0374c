package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BBO is the Best Bid and Offer for a symbol. BestBid/BestAsk are nil when
// that side of the book is empty.
type BBO struct {
	Symbol            string
	Timestamp         time.Time
	BestBid           *decimal.Decimal
	BestBidQuantity   decimal.Decimal
	BestAsk           *decimal.Decimal
	BestAskQuantity   decimal.Decimal
}

// PriceLevelView is one aggregated (price, quantity) tuple in an L2
// snapshot.
type PriceLevelView struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// L2Snapshot is a depth-capped view of the book, bids high->low and asks
// low->high.
type L2Snapshot struct {
	Symbol    string
	Timestamp time.Time
	Bids      []PriceLevelView
	Asks      []PriceLevelView
}

// BookSnapshot is the full resting-order state of one symbol's book,
// persisted for operational recovery. Unlike L2Snapshot it carries
// individual orders, not aggregates, so RestoreOrderbook can rebuild the
// FIFO queues exactly.
type BookSnapshot struct {
	ID        string
	Symbol    string
	Timestamp time.Time
	Bids      []Order
	Asks      []Order
}

// DeepCopy returns a snapshot sharing no backing arrays with the receiver,
// safe to hand to a cache or another goroutine.
func (s *BookSnapshot) DeepCopy() *BookSnapshot {
	cp := &BookSnapshot{
		ID:        s.ID,
		Symbol:    s.Symbol,
		Timestamp: s.Timestamp,
		Bids:      make([]Order, len(s.Bids)),
		Asks:      make([]Order, len(s.Asks)),
	}
	copy(cp.Bids, s.Bids)
	copy(cp.Asks, s.Asks)
	return cp
}
