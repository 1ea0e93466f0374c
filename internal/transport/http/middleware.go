package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a minimum spacing between requests from the same
// client, identified by the X-Client-ID header.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]time.Time
	limit   time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{clients: make(map[string]time.Time), limit: limit}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-ID")
		if clientID == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "X-Client-ID header required"})
			c.Abort()
			return
		}
		r.mu.Lock()
		last, seen := r.clients[clientID]
		if seen && time.Since(last) < r.limit {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			c.Abort()
			return
		}
		r.clients[clientID] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
