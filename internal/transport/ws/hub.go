// Package ws fans out trade and BBO events to WebSocket subscribers,
// grouped per symbol and per stream (market data vs trade feed).
// Connection lifecycle is supervised by a tomb.Tomb: each subscriber's
// write pump runs under t.Go, and a read-side disconnect or error calls
// t.Kill so the pump unwinds and ServeMarketData/ServeTrades can return.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"clobengine/internal/core"
	"clobengine/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

const (
	subscriberSendBuffer = 64
	writeWait            = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type stream string

const (
	streamMarketData stream = "market_data"
	streamTrades     stream = "trades"
)

type subscriber struct {
	send chan []byte
	t    tomb.Tomb
}

// Hub tracks subscribers per (stream, symbol) and publishes engine events
// to them. Registering it against a MatchingEngine's sinks is the only
// coupling to the matching path — the hub itself never touches a book.
type Hub struct {
	mu   sync.Mutex
	subs map[stream]map[string]map[*subscriber]struct{}
	log  zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: map[stream]map[string]map[*subscriber]struct{}{
			streamMarketData: make(map[string]map[*subscriber]struct{}),
			streamTrades:      make(map[string]map[*subscriber]struct{}),
		},
		log: log,
	}
}

// Attach registers the hub as a trade and BBO subscriber on engine. Call
// once at startup, before the HTTP/WS listener starts accepting clients.
func (h *Hub) Attach(engine *core.MatchingEngine) {
	engine.RegisterTradeSink(h.onTrade)
	engine.RegisterBBOSink(h.onBBO)
}

func (h *Hub) onTrade(t domain.Trade) {
	b, err := json.Marshal(t)
	if err != nil {
		h.log.Error().Err(err).Msg("ws: marshal trade event")
		return
	}
	h.publish(streamTrades, t.Symbol, b)
}

func (h *Hub) onBBO(symbol string, bbo domain.BBO) {
	b, err := json.Marshal(bbo)
	if err != nil {
		h.log.Error().Err(err).Msg("ws: marshal bbo event")
		return
	}
	h.publish(streamMarketData, symbol, b)
}

func (h *Hub) publish(st stream, symbol string, payload []byte) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs[st][symbol]))
	for s := range h.subs[st][symbol] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.send <- payload:
		default:
			h.log.Warn().Str("symbol", symbol).Msg("ws: subscriber slow, dropping message")
		}
	}
}

func (h *Hub) add(st stream, symbol string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[st][symbol] == nil {
		h.subs[st][symbol] = make(map[*subscriber]struct{})
	}
	h.subs[st][symbol][s] = struct{}{}
}

func (h *Hub) remove(st stream, symbol string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[st][symbol], s)
}

// ServeMarketData upgrades the request to a WebSocket and streams BBO
// updates for symbol until the client disconnects.
func (h *Hub) ServeMarketData(w http.ResponseWriter, r *http.Request, symbol string) error {
	return h.serve(w, r, streamMarketData, symbol)
}

// ServeTrades upgrades the request to a WebSocket and streams trade
// prints for symbol until the client disconnects.
func (h *Hub) ServeTrades(w http.ResponseWriter, r *http.Request, symbol string) error {
	return h.serve(w, r, streamTrades, symbol)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, st stream, symbol string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s := &subscriber{send: make(chan []byte, subscriberSendBuffer)}
	h.add(st, symbol, s)

	s.t.Go(func() error {
		defer h.remove(st, symbol, s)
		defer conn.Close()
		for {
			select {
			case <-s.t.Dying():
				return nil
			case msg, ok := <-s.send:
				if !ok {
					return nil
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return err
				}
			}
		}
	})

	// Drain and discard client reads; a read error (including a normal
	// close) ends the subscription.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.t.Kill(err)
				return
			}
		}
	}()

	return s.t.Wait()
}
