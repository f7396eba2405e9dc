package ftx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"convert_go/internal/domain"
	"convert_go/internal/infra"
)

const (
	DefaultURL   = "https://ftx.com"
	DefaultWSURL = "wss://ftx.com/ws/"

	ordersPath = "/api/orders"
)

var (
	_ domain.SpotExchange      = (*Client)(nil)
	_ domain.MarketPriceSource = (*Client)(nil)
)

// ClientConfig holds configuration for the spot venue client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	SubAccount string
	Timeout    time.Duration
	// RequestsPerSecond bounds outgoing calls; burst is 1.
	RequestsPerSecond float64
	UserAgent         string
	Logger            *slog.Logger
	HTTPClient        *http.Client
}

// Client places spot orders and reads market prices.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	signer     *Signer
	limiter    *rate.Limiter
	breaker    *infra.CircuitBreaker
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 6
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger.With(slog.String("component", "ftx-client"))
	breakerCfg := infra.DefaultCircuitBreakerConfig("ftx")
	breakerCfg.Logger = logger

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		signer:     NewSigner(cfg.APIKey, cfg.APISecret, cfg.SubAccount),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker:    infra.NewCircuitBreaker(breakerCfg),
		logger:     logger,
	}
}

func (c *Client) Name() string { return "ftx" }

// Close wipes the API keys.
func (c *Client) Close() { c.signer.Wipe() }

// PlaceOrder sends a market order. A 4xx answer carrying success:false is
// returned as a response, so the caller sees the venue's error text.
func (c *Client) PlaceOrder(ctx context.Context, req domain.SpotOrderRequest) (*domain.SpotOrderResponse, error) {
	body := placeOrderRequest{
		Market:   req.Market,
		Side:     req.Side,
		Type:     "market",
		Size:     json.Number(req.Size.String()),
		ClientID: req.ClientID,
	}

	env, err := c.do(ctx, http.MethodPost, ordersPath, body, true)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return &domain.SpotOrderResponse{Error: env.Error}, nil
	}

	var res orderResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return nil, fmt.Errorf("decode ftx order: %w", err)
	}
	return &domain.SpotOrderResponse{Success: true, Result: &domain.SpotOrderResult{
		ID:        res.ID.String(),
		Market:    res.Market,
		Side:      res.Side,
		Size:      res.Size,
		CreatedAt: res.CreatedAt,
	}}, nil
}

// MarketPrice returns the market's mark price, falling back to the last trade.
func (c *Client) MarketPrice(ctx context.Context, market string) (decimal.Decimal, error) {
	env, err := c.do(ctx, http.MethodGet, marketPath(market), nil, false)
	if err != nil {
		return decimal.Zero, err
	}
	if !env.Success {
		return decimal.Zero, fmt.Errorf("ftx market %s: %s", market, env.Error)
	}

	var res marketResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return decimal.Zero, fmt.Errorf("decode ftx market: %w", err)
	}
	switch {
	case res.Price != nil:
		return *res.Price, nil
	case res.Last != nil:
		return *res.Last, nil
	default:
		return decimal.Zero, nil
	}
}

// marketPath escapes each segment of market but keeps the slash of spot
// names such as BTC/USD, which the venue routes as part of the path.
func marketPath(market string) string {
	segments := strings.Split(market, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/api/markets/" + strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, method, path string, body any, private bool) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	var env envelope
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.send(ctx, method, path, body, private, &env)
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, private bool, out *envelope) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if private {
		c.signer.Apply(req, path, payload)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", slog.Any("error", closeErr))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("ftx %s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ftx %s %s: HTTP %d: decode response: %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK && out.Success {
		return fmt.Errorf("ftx %s %s: HTTP %d with success=true", method, path, resp.StatusCode)
	}
	return nil
}
