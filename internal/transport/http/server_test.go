package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"clobengine/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func newTestServer() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := core.NewMatchingEngine(nil, zerolog.Nop())
	return NewServer(engine, 10).Handler(0)
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitOrder_RestsWhenNoCross(t *testing.T) {
	r := newTestServer()

	w := doJSON(r, "POST", "/orders", SubmitOrderRequest{
		ClientID: "c1", Symbol: "BTC-USD", Side: "BUY", Type: "LIMIT", Price: "100", Quantity: "1",
	})
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp SubmitOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "pending" {
		t.Errorf("expected pending, got %s", resp.Status)
	}
	if resp.OrderID == "" {
		t.Error("expected a non-empty order_id")
	}
	if len(resp.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(resp.Trades))
	}
}

func TestSubmitOrder_InvalidQuantityIsRejected(t *testing.T) {
	r := newTestServer()

	w := doJSON(r, "POST", "/orders", SubmitOrderRequest{
		ClientID: "c1", Symbol: "BTC-USD", Side: "BUY", Type: "LIMIT", Price: "100", Quantity: "not-a-number",
	})
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp SubmitOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "rejected" {
		t.Errorf("expected rejected, got %s", resp.Status)
	}
	if resp.FilledQuantity != "0" {
		t.Errorf("expected filled_quantity 0, got %s", resp.FilledQuantity)
	}
	if len(resp.Trades) != 0 {
		t.Errorf("expected no trades on a rejected order, got %d", len(resp.Trades))
	}
}

func TestGetBBO_UnknownSymbolIs404(t *testing.T) {
	r := newTestServer()

	req := httptest.NewRequest("GET", "/orderbook/NOPE/bbo", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCancelOrder_AfterSubmitSucceeds(t *testing.T) {
	r := newTestServer()

	w := doJSON(r, "POST", "/orders", SubmitOrderRequest{
		ClientID: "c1", Symbol: "BTC-USD", Side: "SELL", Type: "LIMIT", Price: "200", Quantity: "1",
	})
	var resp SubmitOrderResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	w = doJSON(r, "DELETE", "/orders/BTC-USD/"+resp.OrderID, nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var cancelResp CancelOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cancelResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cancelResp.Status != "cancelled" {
		t.Errorf("expected cancelled, got %s", cancelResp.Status)
	}
}
