package http

import (
	"errors"
	"net/http"
	"time"

	"clobengine/internal/core"
	"clobengine/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server exposes the matching engine over HTTP: order submission and
// cancellation, BBO/L2 queries, and operational snapshot/restore.
type Server struct {
	engine  *core.MatchingEngine
	l2Depth int
}

func NewServer(engine *core.MatchingEngine, l2Depth int) *Server {
	return &Server{engine: engine, l2Depth: l2Depth}
}

func (s *Server) Handler(rateLimitRPS int) *gin.Engine {
	r := gin.Default()

	if rateLimitRPS > 0 {
		rl := NewRateLimiter(time.Second / time.Duration(rateLimitRPS))
		r.Use(rl.Middleware())
	}

	r.POST("/orders", s.submitOrder)
	r.DELETE("/orders/:symbol/:id", s.cancelOrder)
	r.GET("/orderbook/:symbol/bbo", s.getBBO)
	r.GET("/orderbook/:symbol/l2", s.getL2)
	r.POST("/orderbook/:symbol/snapshot", s.snapshotOrderbook)
	r.POST("/orderbook/:symbol/restore", s.restoreOrderbook)

	return r
}

// submitOrder calls the engine for every body that parses as JSON, even
// one with invalid fields: Order.Validate() inside Submit is the single
// place a submission becomes REJECTED, so the HTTP status here is derived
// from the resulting order status. Only a body that cannot be bound at all
// is answered with 400 and a detail message without reaching the engine.
func (s *Server) submitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, DetailResponse{Detail: "invalid request body"})
		return
	}

	o := req.toOrder(uuid.NewString())

	result, err := s.engine.Submit(c.Request.Context(), o)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	status := http.StatusOK
	if result.Order.Status == domain.Rejected {
		status = http.StatusBadRequest
	}
	c.JSON(status, submitResponseFromOrder(result.Order, result.Trades))
}

func (s *Server) cancelOrder(c *gin.Context) {
	symbol := c.Param("symbol")
	id := c.Param("id")

	result, err := s.engine.Cancel(c.Request.Context(), symbol, id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelResponseFromOrder(result.Order))
}

func (s *Server) getBBO(c *gin.Context) {
	symbol := c.Param("symbol")
	bbo, err := s.engine.BBO(symbol)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, bboToDTO(bbo))
}

func (s *Server) getL2(c *gin.Context) {
	symbol := c.Param("symbol")
	snap, err := s.engine.L2(symbol, s.l2Depth)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, l2ToDTO(snap))
}

func (s *Server) snapshotOrderbook(c *gin.Context) {
	symbol := c.Param("symbol")
	snap, err := s.engine.SnapshotOrderbook(c.Request.Context(), symbol)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": snap.Symbol, "timestamp": formatTimestamp(snap.Timestamp)})
}

func (s *Server) restoreOrderbook(c *gin.Context) {
	symbol := c.Param("symbol")
	snap, err := s.engine.RestoreOrderbook(c.Request.Context(), symbol)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": snap.Symbol, "restored_orders": len(snap.Bids) + len(snap.Asks)})
}

// writeDomainError maps a domain-boundary error to the {"detail": ...}
// shape. Validation errors no longer reach here — Submit recovers them
// locally into a REJECTED result — so this now only ever sees lookup
// failures, the restore-into-non-empty-book conflict, and internal errors.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, DetailResponse{Detail: "Order not found"})
	case errors.Is(err, domain.ErrSymbolNotFound):
		c.JSON(http.StatusNotFound, DetailResponse{Detail: "Symbol not found"})
	case errors.Is(err, domain.ErrSnapshotNotFound):
		c.JSON(http.StatusNotFound, DetailResponse{Detail: "Snapshot not found"})
	case errors.Is(err, domain.ErrBookNotEmpty):
		c.JSON(http.StatusConflict, DetailResponse{Detail: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "internal error"})
	}
}
