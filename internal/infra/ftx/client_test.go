package ftx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

// MockRoundTripper allows us to mock HTTP responses
type MockRoundTripper struct {
	Func func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Func(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(rt func(req *http.Request) (*http.Response, error)) *Client {
	return NewClient(ClientConfig{
		APIKey:     "test_key",
		APISecret:  "test_secret",
		HTTPClient: &http.Client{Transport: &MockRoundTripper{Func: rt}},
	})
}

func TestClient_PlaceOrder(t *testing.T) {
	var sent map[string]any
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != ordersPath {
			t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		if req.Header.Get("FTX-KEY") != "test_key" || req.Header.Get("FTX-SIGN") == "" {
			t.Error("order request is not signed")
		}
		if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(200, `{"success":true,"result":{"id":9596912,"market":"BTC/USD","side":"buy","size":0.01,"createdAt":"2026-10-16T09:30:00.728933+00:00"}}`), nil
	})

	resp, err := client.PlaceOrder(context.Background(), domain.SpotOrderRequest{
		Market: "BTC/USD", Side: "buy", Size: decimal.RequireFromString("0.01"), ClientID: "cid",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if !resp.Success || resp.Result == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Result.ID != "9596912" || resp.Result.Market != "BTC/USD" || !resp.Result.Size.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("result = %+v", resp.Result)
	}

	if sent["type"] != "market" || sent["price"] != nil || sent["size"] != 0.01 || sent["clientId"] != "cid" {
		t.Errorf("body = %v", sent)
	}
}

func TestClient_PlaceOrder_Rejected(t *testing.T) {
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"success":false,"error":"Not enough balances"}`), nil
	})

	resp, err := client.PlaceOrder(context.Background(), domain.SpotOrderRequest{Market: "BTC/USDT", Side: "sell", Size: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("rejection must not be a transport error: %v", err)
	}
	if resp.Success || resp.Error != "Not enough balances" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_PlaceOrder_ServerError(t *testing.T) {
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(503, `<html>maintenance</html>`), nil
	})
	if _, err := client.PlaceOrder(context.Background(), domain.SpotOrderRequest{Market: "BTC/USD", Side: "buy", Size: decimal.NewFromInt(1)}); err == nil {
		t.Error("expected error on HTTP 503")
	}
}

func TestClient_MarketPrice(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"price", `{"success":true,"result":{"name":"BTC-PERP","price":61234.5,"last":61230}}`, "61234.5"},
		{"last only", `{"success":true,"result":{"name":"BTC-PERP","price":null,"last":61230}}`, "61230"},
		{"no quote", `{"success":true,"result":{"name":"BTC-PERP"}}`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(func(req *http.Request) (*http.Response, error) {
				if req.URL.Path != "/api/markets/BTC-PERP" {
					t.Errorf("path = %s", req.URL.Path)
				}
				if req.Header.Get("FTX-KEY") != "" {
					t.Error("public request must not be signed")
				}
				return jsonResponse(200, tt.body), nil
			})
			got, err := client.MarketPrice(context.Background(), "BTC-PERP")
			if err != nil {
				t.Fatalf("MarketPrice failed: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("MarketPrice = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClient_MarketPrice_SpotMarketPath(t *testing.T) {
	tests := []struct {
		market string
		want   string
	}{
		{"BTC/USD", "/api/markets/BTC/USD"},
		{"ETH/USDT", "/api/markets/ETH/USDT"},
		{"BTC-0326", "/api/markets/BTC-0326"},
	}
	for _, tt := range tests {
		t.Run(tt.market, func(t *testing.T) {
			client := newTestClient(func(req *http.Request) (*http.Response, error) {
				if got := req.URL.EscapedPath(); got != tt.want {
					t.Errorf("escaped path = %s, want %s", got, tt.want)
				}
				return jsonResponse(200, `{"success":true,"result":{"price":30000}}`), nil
			})
			got, err := client.MarketPrice(context.Background(), tt.market)
			if err != nil {
				t.Fatalf("MarketPrice failed: %v", err)
			}
			if !got.Equal(decimal.NewFromInt(30000)) {
				t.Errorf("MarketPrice = %s, want 30000", got)
			}
		})
	}
}

func TestClient_MarketPrice_UnknownMarket(t *testing.T) {
	client := newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"success":false,"error":"No such market: XYZ-PERP"}`), nil
	})
	if _, err := client.MarketPrice(context.Background(), "XYZ-PERP"); err == nil {
		t.Error("expected error for unknown market")
	}
}
