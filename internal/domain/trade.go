package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record. Price is always the maker's
// resting price — there is no separate taker price.
type Trade struct {
	ID            string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	Timestamp     time.Time
	Sequence      uint64
	AggressorSide Side
	MakerOrderID  string
	TakerOrderID  string
}
