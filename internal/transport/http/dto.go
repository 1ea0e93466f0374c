// Package http is the gin-based HTTP transport: it translates the wire
// contract (decimal quantities/prices as strings, timestamps as
// microsecond-precision RFC3339 with a literal "Z" suffix) to and from
// internal/domain and internal/core types.
package http

import (
	"strings"
	"time"

	"clobengine/internal/domain"

	"github.com/shopspring/decimal"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

type SubmitOrderRequest struct {
	ClientID string `json:"client_id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Type     string `json:"order_type"`
	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity"`
}

// toOrder builds a domain.Order from the wire request without rejecting it
// itself: a malformed quantity/price is left as a zero decimal and an
// unrecognized side/type is passed through (uppercased) as is, so that
// domain.Order.Validate() — run inside MatchingEngine.Submit — is the one
// and only place a submission gets turned into a REJECTED result.
func (r *SubmitOrderRequest) toOrder(id string) *domain.Order {
	qty, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		qty = decimal.Zero
	}
	o := &domain.Order{
		ID:               id,
		ClientID:         r.ClientID,
		Symbol:           r.Symbol,
		Side:             domain.Side(strings.ToUpper(r.Side)),
		Type:             domain.OrderType(strings.ToUpper(r.Type)),
		OriginalQuantity: qty,
	}
	if r.Price != "" {
		if price, err := decimal.NewFromString(r.Price); err == nil {
			o.Price = price
		}
	}
	return o
}

type TradeDTO struct {
	ID            string `json:"trade_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	Timestamp     string `json:"timestamp"`
	Sequence      uint64 `json:"sequence"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
}

func tradeToDTO(t domain.Trade) TradeDTO {
	return TradeDTO{
		ID:            t.ID,
		Symbol:        t.Symbol,
		Price:         t.Price.String(),
		Quantity:      t.Quantity.String(),
		Timestamp:     formatTimestamp(t.Timestamp),
		Sequence:      t.Sequence,
		AggressorSide: strings.ToLower(string(t.AggressorSide)),
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
	}
}

func tradesToDTO(trades []domain.Trade) []TradeDTO {
	res := make([]TradeDTO, len(trades))
	for i, t := range trades {
		res[i] = tradeToDTO(t)
	}
	return res
}

// SubmitOrderResponse is the flat submit-result shape: order_id, status
// (pending/partial/filled/cancelled/rejected, lowercase on the wire),
// filled/remaining quantities, the trades generated (if any), and the
// timestamp the engine assigned on acceptance (or attempted acceptance,
// for a rejected order).
type SubmitOrderResponse struct {
	OrderID           string     `json:"order_id"`
	Status            string     `json:"status"`
	FilledQuantity    string     `json:"filled_quantity"`
	RemainingQuantity string     `json:"remaining_quantity"`
	Trades            []TradeDTO `json:"trades"`
	Timestamp         string     `json:"timestamp"`
}

func submitResponseFromOrder(o *domain.Order, trades []domain.Trade) SubmitOrderResponse {
	return SubmitOrderResponse{
		OrderID:           o.ID,
		Status:            strings.ToLower(string(o.Status)),
		FilledQuantity:    o.FilledQuantity().String(),
		RemainingQuantity: o.RemainingQuantity.String(),
		Trades:            tradesToDTO(trades),
		Timestamp:         formatTimestamp(o.Timestamp),
	}
}

// CancelOrderResponse is the flat cancel-result shape.
type CancelOrderResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func cancelResponseFromOrder(o *domain.Order) CancelOrderResponse {
	return CancelOrderResponse{
		OrderID:   o.ID,
		Status:    strings.ToLower(string(o.Status)),
		Timestamp: formatTimestamp(o.Timestamp),
	}
}

// BBODTO is the BBO wire shape; an empty side's price and quantity are
// sent as null.
type BBODTO struct {
	Symbol          string  `json:"symbol"`
	Timestamp       string  `json:"timestamp"`
	BestBid         *string `json:"best_bid"`
	BestBidQuantity *string `json:"best_bid_quantity"`
	BestAsk         *string `json:"best_ask"`
	BestAskQuantity *string `json:"best_ask_quantity"`
}

func bboToDTO(b domain.BBO) BBODTO {
	dto := BBODTO{Symbol: b.Symbol, Timestamp: formatTimestamp(b.Timestamp)}
	if b.BestBid != nil {
		bid, bidQty := b.BestBid.String(), b.BestBidQuantity.String()
		dto.BestBid, dto.BestBidQuantity = &bid, &bidQty
	}
	if b.BestAsk != nil {
		ask, askQty := b.BestAsk.String(), b.BestAskQuantity.String()
		dto.BestAsk, dto.BestAskQuantity = &ask, &askQty
	}
	return dto
}

// PriceLevelDTO is one [price, quantity] pair of an L2 side.
type PriceLevelDTO [2]string

type L2SnapshotDTO struct {
	Symbol    string          `json:"symbol"`
	Timestamp string          `json:"timestamp"`
	Bids      []PriceLevelDTO `json:"bids"`
	Asks      []PriceLevelDTO `json:"asks"`
}

func l2ToDTO(snap domain.L2Snapshot) L2SnapshotDTO {
	dto := L2SnapshotDTO{
		Symbol:    snap.Symbol,
		Timestamp: formatTimestamp(snap.Timestamp),
		Bids:      make([]PriceLevelDTO, 0, len(snap.Bids)),
		Asks:      make([]PriceLevelDTO, 0, len(snap.Asks)),
	}
	for _, lvl := range snap.Bids {
		dto.Bids = append(dto.Bids, PriceLevelDTO{lvl.Price.String(), lvl.Quantity.String()})
	}
	for _, lvl := range snap.Asks {
		dto.Asks = append(dto.Asks, PriceLevelDTO{lvl.Price.String(), lvl.Quantity.String()})
	}
	return dto
}

// ErrorResponse is used for rate limiting, a transport-level concern the
// wire contract leaves free for the transport to choose.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetailResponse is the boundary shape for anything that doesn't fit a
// normal submit/cancel result: an unparseable request body, an unknown
// order/symbol, a restore rejected because the book isn't empty, or an
// internal error, e.g. {"detail": "Order not found"}.
type DetailResponse struct {
	Detail string `json:"detail"`
}
