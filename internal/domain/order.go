package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the engine's view of a submitted order. Apart from
// RemainingQuantity and Status, which the engine mutates while it holds the
// owning book's lock, an Order is treated as immutable.
type Order struct {
	ID                string
	ClientID          string
	Symbol            string
	Side              Side
	Type              OrderType
	Price             decimal.Decimal // zero value for MARKET
	OriginalQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	Status            OrderStatus
	// Timestamp is the engine-assigned acceptance time. It is strictly
	// increasing across all accepted orders, engine-wide (see Sequencer).
	Timestamp time.Time
	Sequence  uint64
}

// FilledQuantity derives the filled amount from the invariant
// filled = original - remaining.
func (o *Order) FilledQuantity() decimal.Decimal {
	return o.OriginalQuantity.Sub(o.RemainingQuantity)
}

// Fill reduces the order's remaining quantity by qty and updates status.
// qty must not exceed RemainingQuantity; callers (the match loop) already
// clamp to min(taker.remaining, maker.remaining) so this never overflows.
func (o *Order) Fill(qty decimal.Decimal) {
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	switch {
	case o.RemainingQuantity.IsZero():
		o.Status = Filled
	case o.FilledQuantity().IsPositive():
		o.Status = Partial
	}
}

// Validate checks the invariants required at construction time: nonempty
// symbol, valid side/type, positive quantity, price presence consistent
// with the order type.
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !o.Side.Valid() {
		return ErrInvalidSide
	}
	if !o.Type.Valid() {
		return ErrInvalidType
	}
	if !o.OriginalQuantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if o.Type.RequiresPrice() {
		if o.Price.IsZero() {
			return ErrPriceRequired
		}
		if !o.Price.IsPositive() {
			return ErrInvalidPrice
		}
	} else if !o.Price.IsZero() {
		return ErrPriceNotAllowed
	}
	return nil
}

// PriceAllows reports whether, given the maker price mp on the opposite
// side, the taker's limit (if any) tolerates trading at mp. MARKET orders
// tolerate any price.
func (o *Order) PriceAllows(mp decimal.Decimal) bool {
	if o.Type == Market {
		return true
	}
	if o.Side == Buy {
		return mp.LessThanOrEqual(o.Price)
	}
	return mp.GreaterThanOrEqual(o.Price)
}
