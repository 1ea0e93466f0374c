package core

import (
	"context"
	"fmt"
	"testing"

	"clobengine/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestEngine() *MatchingEngine {
	return NewMatchingEngine(nil, zerolog.Nop())
}

var submitCounter int

func submit(t *testing.T, e *MatchingEngine, side domain.Side, typ domain.OrderType, p, q string) *SubmitResult {
	t.Helper()
	submitCounter++
	o := &domain.Order{
		ID:               fmt.Sprintf("%s-%s-%s-%s-%d", typ, side, p, q, submitCounter),
		Symbol:           "BTC-USD",
		Side:             side,
		Type:             typ,
		OriginalQuantity: qty(q),
	}
	if typ.RequiresPrice() {
		o.Price = qty(p)
	}
	res, err := e.Submit(context.Background(), o)
	require.NoError(t, err)
	return res
}

func TestMatchingEngine_LimitCrossesRestingLiquidity(t *testing.T) {
	e := newTestEngine()

	submit(t, e, domain.Sell, domain.Limit, "100", "5")

	res := submit(t, e, domain.Buy, domain.Limit, "100", "3")
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Quantity.Equal(qty("3")))
	assert.True(t, res.Trades[0].Price.Equal(qty("100")), "trade prints at the maker's price")
	assert.Equal(t, domain.Filled, res.Order.Status)

	bbo, err := e.BBO("BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, bbo.BestAsk)
	assert.True(t, bbo.BestAsk.Equal(qty("100")))
	assert.True(t, bbo.BestAskQuantity.Equal(qty("2")))
}

func TestMatchingEngine_LimitRestsWhenNoCross(t *testing.T) {
	e := newTestEngine()
	res := submit(t, e, domain.Buy, domain.Limit, "99", "1")
	assert.Equal(t, domain.Pending, res.Order.Status)
	assert.Empty(t, res.Trades)

	bbo, err := e.BBO("BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, bbo.BestBid)
}

func TestMatchingEngine_MarketOrderSweepsMultipleLevels(t *testing.T) {
	e := newTestEngine()
	submit(t, e, domain.Sell, domain.Limit, "100", "2")
	submit(t, e, domain.Sell, domain.Limit, "101", "2")

	res := submit(t, e, domain.Buy, domain.Market, "", "3")
	require.Len(t, res.Trades, 2)
	assert.True(t, res.Trades[0].Price.Equal(qty("100")))
	assert.True(t, res.Trades[1].Price.Equal(qty("101")))
	assert.Equal(t, domain.Filled, res.Order.Status)
}

func TestMatchingEngine_MarketOrderResidualCancelsWithoutResting(t *testing.T) {
	e := newTestEngine()
	submit(t, e, domain.Sell, domain.Limit, "100", "1")

	res := submit(t, e, domain.Buy, domain.Market, "", "5")
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Cancelled, res.Order.Status)
	assert.True(t, res.Order.FilledQuantity().Equal(qty("1")))
}

func TestMatchingEngine_IOCCancelsResidual(t *testing.T) {
	e := newTestEngine()
	submit(t, e, domain.Sell, domain.Limit, "100", "1")

	res := submit(t, e, domain.Buy, domain.IOC, "100", "4")
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Cancelled, res.Order.Status)

	_, err := e.Cancel(context.Background(), "BTC-USD", res.Order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound, "IOC residual must never rest")
}

func TestMatchingEngine_FOKAllOrNothing(t *testing.T) {
	e := newTestEngine()
	submit(t, e, domain.Sell, domain.Limit, "100", "2")

	res := submit(t, e, domain.Buy, domain.FOK, "100", "5")
	assert.Empty(t, res.Trades, "insufficient liquidity must kill the whole order")
	assert.Equal(t, domain.Cancelled, res.Order.Status)

	bbo, err := e.BBO("BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, bbo.BestAsk)
	assert.True(t, bbo.BestAskQuantity.Equal(qty("2")), "a killed FOK must not touch resting liquidity")

	res = submit(t, e, domain.Buy, domain.FOK, "100", "2")
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.Filled, res.Order.Status)
}

func TestMatchingEngine_CancelRestingOrder(t *testing.T) {
	e := newTestEngine()
	res := submit(t, e, domain.Buy, domain.Limit, "99", "1")

	cancelRes, err := e.Cancel(context.Background(), "BTC-USD", res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Cancelled, cancelRes.Order.Status)

	_, err = e.Cancel(context.Background(), "BTC-USD", res.Order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMatchingEngine_SnapshotOrderbook_CapturesRestingOrders(t *testing.T) {
	e := newTestEngine()
	submit(t, e, domain.Buy, domain.Limit, "99", "1")
	submit(t, e, domain.Sell, domain.Limit, "101", "1")

	snap, err := e.SnapshotOrderbook(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Len(t, snap.Bids, 1)
	assert.Len(t, snap.Asks, 1)

	_, err = e.SnapshotOrderbook(context.Background(), "ETH-USD")
	assert.ErrorIs(t, err, domain.ErrSymbolNotFound)
}

func TestMatchingEngine_SequencerOrderingAcrossSubmissions(t *testing.T) {
	e := newTestEngine()
	r1 := submit(t, e, domain.Buy, domain.Limit, "99", "1")
	r2 := submit(t, e, domain.Buy, domain.Limit, "99", "1")

	assert.Less(t, r1.Order.Sequence, r2.Order.Sequence)
	assert.False(t, r2.Order.Timestamp.Before(r1.Order.Timestamp))
}

func TestMatchingEngine_Submit_InvalidOrderIsRejectedNotErrored(t *testing.T) {
	e := newTestEngine()

	o := &domain.Order{
		ID:               "bad-1",
		Symbol:           "BTC-USD",
		Side:             domain.Buy,
		Type:             domain.Limit,
		OriginalQuantity: decimal.Zero,
	}
	res, err := e.Submit(context.Background(), o)
	require.NoError(t, err, "a validation failure is recovered locally, not returned as an error")
	assert.Equal(t, domain.Rejected, res.Order.Status)
	assert.True(t, res.Order.FilledQuantity().IsZero())
	assert.Empty(t, res.Trades)
}

func TestMatchingEngine_BBOSink_FiresOnlyOnActualChange(t *testing.T) {
	e := newTestEngine()
	var fired int
	e.RegisterBBOSink(func(string, domain.BBO) { fired++ })

	submit(t, e, domain.Sell, domain.Limit, "100", "5")
	assert.Equal(t, 1, fired, "a new best ask must fire once")

	// A second resting order behind the best ask doesn't move the BBO.
	submit(t, e, domain.Sell, domain.Limit, "101", "5")
	assert.Equal(t, 1, fired, "a level behind the best price must not fire")

	// A killed FOK never touches the book: no event.
	res := submit(t, e, domain.Buy, domain.FOK, "100", "50")
	assert.Equal(t, domain.Cancelled, res.Order.Status)
	assert.Equal(t, 1, fired, "a killed FOK must not fire a BBO event")

	// An IOC that finds no marketable liquidity on its side never touches
	// the book either.
	res = submit(t, e, domain.Sell, domain.IOC, "100", "1")
	assert.Equal(t, 1, fired, "an IOC that matches nothing must not fire")

	// Cancelling a resting order behind the top of book (a new one at 102)
	// leaves the BBO unchanged.
	second := submit(t, e, domain.Sell, domain.Limit, "102", "1")
	fired = 0
	_, err := e.Cancel(context.Background(), "BTC-USD", second.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fired, "cancelling behind the top of book must not fire")

	// Filling the best ask down to zero does change the BBO.
	fired = 0
	submit(t, e, domain.Buy, domain.Limit, "100", "5")
	assert.Equal(t, 1, fired, "consuming the best ask level must fire")
}
