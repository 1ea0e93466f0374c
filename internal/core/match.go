package core

import (
	"clobengine/internal/book"
	"clobengine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// runMatch drives one incoming order against the resting liquidity on b's
// opposite side and returns the trades it generated. It never touches
// persistence, caches, or sinks — those happen after the caller releases
// the book's lock. seq supplies the (timestamp, sequence) pair stamped on
// every trade, in submission order, satisfying the engine-wide strictly
// increasing ordering the acceptance path already gave taker.Timestamp.
func runMatch(b *book.OrderBook, taker *domain.Order, seq *Sequencer) []domain.Trade {
	if taker.Type == domain.FOK {
		var limit *decimal.Decimal
		if taker.Type.RequiresPrice() {
			p := taker.Price
			limit = &p
		}
		available := b.MarketableQuantity(taker.Side, limit)
		if available.LessThan(taker.RemainingQuantity) {
			taker.Status = domain.Cancelled
			return nil
		}
	}

	var trades []domain.Trade
	for taker.RemainingQuantity.IsPositive() {
		maker, levelPrice, ok := b.PeekOppositeHead(taker.Side)
		if !ok {
			break
		}
		if !taker.PriceAllows(levelPrice) {
			break
		}

		fillQty := decimal.Min(taker.RemainingQuantity, maker.RemainingQuantity)
		b.ConsumeOppositeHead(taker.Side, fillQty)
		taker.Fill(fillQty)

		ts, sequence := seq.Next()
		trade := domain.Trade{
			ID:            uuid.NewString(),
			Symbol:        b.Symbol,
			Price:         levelPrice,
			Quantity:      fillQty,
			Timestamp:     ts,
			Sequence:      sequence,
			AggressorSide: taker.Side,
			MakerOrderID:  maker.ID,
			TakerOrderID:  taker.ID,
		}
		trades = append(trades, trade)
	}

	switch {
	case taker.RemainingQuantity.IsZero():
		taker.Status = domain.Filled
	case taker.Type.CanRest():
		if taker.FilledQuantity().IsPositive() {
			taker.Status = domain.Partial
		}
		b.AddResting(taker)
	default:
		taker.Status = domain.Cancelled
	}

	return trades
}
