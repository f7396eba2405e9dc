package bybit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"convert_go/internal/domain"
	"convert_go/internal/infra"
)

const (
	MainnetURL = "https://api.bybit.com"
	TestnetURL = "https://api-testnet.bybit.com"

	symbolsPath     = "/v2/public/symbols"
	orderCreatePath = "/futures/private/order/create"
)

var (
	_ domain.InstrumentSource = (*Client)(nil)
	_ domain.FuturesExchange  = (*Client)(nil)
)

// ClientConfig holds configuration for the futures venue client.
type ClientConfig struct {
	// BaseURL overrides the mainnet/testnet URL.
	BaseURL      string
	Testnet      bool
	APIKey       string
	APISecret    string
	RecvWindowMS int64
	Timeout      time.Duration
	// RequestsPerSecond bounds outgoing calls; burst is 1.
	RequestsPerSecond float64
	UserAgent         string
	Logger            *slog.Logger
	HTTPClient        *http.Client
}

// Client talks to the futures venue's REST API.
type Client struct {
	cfg        ClientConfig
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	limiter    *rate.Limiter
	breaker    *infra.CircuitBreaker
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" || (cfg.Testnet && baseURL == MainnetURL) {
		baseURL = MainnetURL
		if cfg.Testnet {
			baseURL = TestnetURL
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger.With(slog.String("component", "bybit-client"))
	breakerCfg := infra.DefaultCircuitBreakerConfig("bybit")
	breakerCfg.Logger = logger

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
		signer:     NewSigner(cfg.APIKey, cfg.APISecret),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker:    infra.NewCircuitBreaker(breakerCfg),
		logger:     logger,
	}
}

func (c *Client) Name() string { return "bybit" }

// Close wipes the API keys.
func (c *Client) Close() { c.signer.Wipe() }

// ListInstruments fetches every listed symbol.
func (c *Client) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, symbolsPath, nil, &env); err != nil {
		return nil, err
	}
	if env.RetCode != 0 {
		return nil, fmt.Errorf("bybit symbols: %s (ret_code %d)", env.RetMsg, env.RetCode)
	}

	var symbols []symbolInfo
	if err := json.Unmarshal(env.Result, &symbols); err != nil {
		return nil, fmt.Errorf("decode bybit symbols: %w", err)
	}
	out := make([]domain.Instrument, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, domain.Instrument{
			Name:          s.Name,
			Alias:         s.Alias,
			BaseCurrency:  domain.Currency(s.BaseCurrency),
			QuoteCurrency: domain.Currency(s.QuoteCurrency),
			Status:        domain.InstrumentStatus(s.Status),
		})
	}
	return out, nil
}

// SubmitOrder creates a futures order. A venue-side rejection comes back as
// a response with a nil Result and the venue's ret_msg, not as an error.
func (c *Client) SubmitOrder(ctx context.Context, req domain.FuturesOrderRequest) (*domain.FuturesOrderResponse, error) {
	wire := orderCreateRequest{
		Side:        req.Side,
		Symbol:      req.Symbol,
		OrderType:   req.OrderType,
		Qty:         req.Qty,
		TimeInForce: req.TimeInForce,
		OrderLinkID: req.ClientOrderID,
	}
	if req.OrderType == domain.OrderTypeLimit.Title() {
		wire.Price = req.Price.String()
	}

	params := wire.params()
	c.signer.Sign(params, c.cfg.RecvWindowMS)

	body := make(map[string]any, len(params))
	for k, v := range params {
		body[k] = v
	}
	body["qty"] = wire.Qty

	var env envelope
	if err := c.do(ctx, http.MethodPost, orderCreatePath, body, &env); err != nil {
		return nil, err
	}

	resp := &domain.FuturesOrderResponse{Message: env.RetMsg}
	if env.RetCode != 0 || len(env.Result) == 0 || string(env.Result) == "null" {
		return resp, nil
	}
	var res orderCreateResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return nil, fmt.Errorf("decode bybit order: %w", err)
	}
	resp.Result = &domain.FuturesOrderResult{
		OrderID:   res.OrderID,
		Symbol:    res.Symbol,
		Side:      res.Side,
		Qty:       res.Qty,
		CreatedAt: res.CreatedAt,
	}
	return resp, nil
}

// do sends one request through the limiter and the breaker. Orders are
// never retried here.
func (c *Client) do(ctx context.Context, method, path string, body any, out *envelope) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.send(ctx, method, path, body, out)
	})
}

func (c *Client) send(ctx context.Context, method, path string, body any, out *envelope) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
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

	start := time.Now()
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
	c.logger.Debug("bybit request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(data, 256)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// HTTPError is a non-200 answer from the venue.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bybit: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsHTTPStatus reports whether err is an HTTPError with the given status.
func IsHTTPStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == status
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
