package core

import "clobengine/internal/domain"

// TradeSink and BBOSink are the engine's event contract. They are invoked
// after the submitting critical section has released its lock — never
// with any book region held — so a slow or panicking subscriber cannot
// stall matching.
type TradeSink func(domain.Trade)
type BBOSink func(symbol string, bbo domain.BBO)

// RegisterTradeSink adds a trade subscriber. Safe to call concurrently
// with Submit.
func (e *MatchingEngine) RegisterTradeSink(fn TradeSink) {
	e.sinksMu.Lock()
	defer e.sinksMu.Unlock()
	e.tradeSinks = append(e.tradeSinks, fn)
}

// RegisterBBOSink adds a BBO/depth subscriber.
func (e *MatchingEngine) RegisterBBOSink(fn BBOSink) {
	e.sinksMu.Lock()
	defer e.sinksMu.Unlock()
	e.bboSinks = append(e.bboSinks, fn)
}

// dispatchTrades and dispatchBBO drain the event buffer built up during a
// submission/cancellation. Called strictly after the book's lock has been
// released. A panicking sink is caught and logged so it cannot take down
// the caller (the engine) — mirrors the original Python implementation's
// try/except around each callback invocation.
func (e *MatchingEngine) dispatchTrades(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	e.sinksMu.Lock()
	sinks := make([]TradeSink, len(e.tradeSinks))
	copy(sinks, e.tradeSinks)
	e.sinksMu.Unlock()

	for _, t := range trades {
		for _, sink := range sinks {
			e.safeInvokeTrade(sink, t)
		}
	}
}

func (e *MatchingEngine) dispatchBBO(symbol string, bbo domain.BBO) {
	e.sinksMu.Lock()
	sinks := make([]BBOSink, len(e.bboSinks))
	copy(sinks, e.bboSinks)
	e.sinksMu.Unlock()

	for _, sink := range sinks {
		e.safeInvokeBBO(sink, symbol, bbo)
	}
}

func (e *MatchingEngine) safeInvokeTrade(sink TradeSink, t domain.Trade) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("trade_id", t.ID).Msg("trade sink panicked")
		}
	}()
	sink(t)
}

func (e *MatchingEngine) safeInvokeBBO(sink BBOSink, symbol string, bbo domain.BBO) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("symbol", symbol).Msg("bbo sink panicked")
		}
	}()
	sink(symbol, bbo)
}
