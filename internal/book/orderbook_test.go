package book

import (
	"testing"

	"clobengine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func restingOrder(id string, side domain.Side, p, qty string) *domain.Order {
	return &domain.Order{
		ID:                id,
		Symbol:            "BTC-USD",
		Side:              side,
		Type:              domain.Limit,
		Price:             price(p),
		OriginalQuantity:  price(qty),
		RemainingQuantity: price(qty),
		Status:            domain.Pending,
	}
}

func TestOrderBook_AddResting_PriceTimePriority(t *testing.T) {
	b := NewOrderBook("BTC-USD")

	b.AddResting(restingOrder("b1", domain.Buy, "99", "1"))
	b.AddResting(restingOrder("b2", domain.Buy, "100", "1"))
	b.AddResting(restingOrder("b3", domain.Buy, "100", "1"))

	best, ok := b.BestBidPrice()
	require.True(t, ok)
	assert.True(t, best.Equal(price("100")))

	maker, lvlPrice, ok := b.PeekOppositeHead(domain.Sell)
	require.True(t, ok)
	assert.Equal(t, "b2", maker.ID, "earlier order at the best price must be served first")
	assert.True(t, lvlPrice.Equal(price("100")))
}

func TestOrderBook_Cancel_RemovesFromIndexAndLadder(t *testing.T) {
	b := NewOrderBook("BTC-USD")
	b.AddResting(restingOrder("a1", domain.Sell, "50", "2"))

	o, err := b.Cancel("a1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cancelled, o.Status)
	assert.True(t, b.IsEmpty())

	_, err = b.Cancel("a1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderBook_ConsumeOppositeHead_PartialThenFull(t *testing.T) {
	b := NewOrderBook("BTC-USD")
	b.AddResting(restingOrder("a1", domain.Sell, "50", "5"))

	maker := b.ConsumeOppositeHead(domain.Buy, price("2"))
	assert.Equal(t, "a1", maker.ID)
	assert.True(t, maker.RemainingQuantity.Equal(price("3")), "partial consume must leave the maker resting")

	_, _, ok := b.PeekOppositeHead(domain.Buy)
	assert.True(t, ok, "partially filled maker should still be at the head")

	maker = b.ConsumeOppositeHead(domain.Buy, price("3"))
	assert.True(t, maker.RemainingQuantity.IsZero())
	assert.True(t, b.IsEmpty(), "level should be removed once its only order is drained")
}

func TestOrderBook_MarketableQuantity_StopsAtFirstIncompatibleLevel(t *testing.T) {
	b := NewOrderBook("BTC-USD")
	b.AddResting(restingOrder("a1", domain.Sell, "100", "3"))
	b.AddResting(restingOrder("a2", domain.Sell, "101", "4"))
	b.AddResting(restingOrder("a3", domain.Sell, "102", "5"))

	limit := price("101")
	qty := b.MarketableQuantity(domain.Buy, &limit)
	assert.True(t, qty.Equal(price("7")), "must sum only levels at or below the limit")

	qty = b.MarketableQuantity(domain.Buy, nil)
	assert.True(t, qty.Equal(price("12")), "nil limit (MARKET order) sums the whole side")
}

func TestOrderBook_L2Snapshot_RespectsDepthAndOrdering(t *testing.T) {
	b := NewOrderBook("BTC-USD")
	b.AddResting(restingOrder("b1", domain.Buy, "99", "1"))
	b.AddResting(restingOrder("b2", domain.Buy, "100", "1"))
	b.AddResting(restingOrder("a1", domain.Sell, "101", "1"))
	b.AddResting(restingOrder("a2", domain.Sell, "102", "1"))

	snap := b.L2Snapshot(1)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Bids[0].Price.Equal(price("100")))
	assert.True(t, snap.Asks[0].Price.Equal(price("101")))
}

func TestOrderBook_SnapshotRestore_RejectsNonEmptyBook(t *testing.T) {
	src := NewOrderBook("BTC-USD")
	src.AddResting(restingOrder("b1", domain.Buy, "99", "1"))
	snap := src.Snapshot()

	dst := NewOrderBook("BTC-USD")
	require.NoError(t, dst.RestoreFrom(snap))
	_, ok := dst.BestBidPrice()
	assert.True(t, ok)

	err := dst.RestoreFrom(snap)
	assert.ErrorIs(t, err, domain.ErrBookNotEmpty)
}
