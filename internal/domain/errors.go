package domain

import "errors"

// Validation errors: recovered locally by the engine, surfaced as a
// REJECTED submit result.
var (
	ErrInvalidSymbol    = errors.New("symbol must not be empty")
	ErrInvalidSide      = errors.New("side must be BUY or SELL")
	ErrInvalidType      = errors.New("unknown order type")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrPriceRequired    = errors.New("price is required for this order type")
	ErrPriceNotAllowed  = errors.New("price is not allowed for market orders")
)

// Lookup errors: no state change, returned as a not-found result.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ErrBookNotEmpty guards RestoreOrderbook: a restore is a cold-start
// recovery operation, not a matching operation, and must never silently
// clobber a live book.
var ErrBookNotEmpty = errors.New("cannot restore snapshot into a book with resting orders")
