package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"convert_go/internal/domain"
)

// FuturesOrderGateway places orders on the futures venue and normalizes the
// venue's answer into an OrderLeg.
type FuturesOrderGateway struct {
	exchange domain.FuturesExchange
	logger   *slog.Logger
}

func NewFuturesOrderGateway(exchange domain.FuturesExchange, logger *slog.Logger) *FuturesOrderGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &FuturesOrderGateway{exchange: exchange, logger: logger}
}

// PlaceFuturesOrder submits a futures order. A response without a result
// payload is an OrderRejected carrying the venue's message.
func (g *FuturesOrderGateway) PlaceFuturesOrder(ctx context.Context, symbol string, side domain.Side, qty int64, orderType domain.OrderType, tif domain.TimeInForce) (domain.OrderLeg, error) {
	if orderType == 0 {
		orderType = domain.OrderTypeMarket
	}
	if tif == "" {
		tif = domain.GoodTillCancel
	}

	req := domain.FuturesOrderRequest{
		Symbol:        symbol,
		Side:          side.Title(),
		Qty:           qty,
		OrderType:     orderType.Title(),
		TimeInForce:   string(tif),
		ClientOrderID: uuid.NewString(),
	}
	if req.Side == "" || req.OrderType == "" {
		return domain.OrderLeg{}, fmt.Errorf("futures order: invalid side %d or type %d", side, orderType)
	}

	g.logger.InfoContext(ctx, "Submitting futures order",
		slog.String("venue", g.exchange.Name()),
		slog.String("symbol", req.Symbol),
		slog.String("side", req.Side),
		slog.Int64("qty", req.Qty),
		slog.String("type", req.OrderType),
		slog.String("client_order_id", req.ClientOrderID))

	resp, err := g.exchange.SubmitOrder(ctx, req)
	if err != nil {
		return domain.OrderLeg{}, fmt.Errorf("submit futures order %s: %w", symbol, err)
	}
	if resp == nil || resp.Result == nil {
		msg := "empty response"
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return domain.OrderLeg{}, &domain.OrderRejected{Provider: domain.ProviderFutures, Message: msg}
	}

	return g.normalize(resp.Result)
}

func (g *FuturesOrderGateway) normalize(res *domain.FuturesOrderResult) (domain.OrderLeg, error) {
	if res.OrderID == "" || res.Symbol == "" {
		return domain.OrderLeg{}, malformed(domain.ProviderFutures, "missing order_id or symbol")
	}
	side, err := domain.ParseSide(res.Side)
	if err != nil {
		return domain.OrderLeg{}, malformed(domain.ProviderFutures, err.Error())
	}
	createdAt, err := parseVenueTime(res.CreatedAt)
	if err != nil {
		return domain.OrderLeg{}, malformed(domain.ProviderFutures, err.Error())
	}
	return domain.OrderLeg{
		Provider:  domain.ProviderFutures,
		Venue:     g.exchange.Name(),
		Symbol:    res.Symbol,
		Side:      side,
		Size:      res.Qty,
		OrderID:   res.OrderID,
		CreatedAt: createdAt,
	}, nil
}

func malformed(p domain.Provider, detail string) error {
	return &domain.OrderRejected{Provider: p, Message: "malformed response: " + detail}
}

// parseVenueTime accepts RFC 3339 timestamps with or without fractions.
// An empty value means the venue did not report one.
func parseVenueTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad created_at %q", s)
	}
	return t.UTC(), nil
}
