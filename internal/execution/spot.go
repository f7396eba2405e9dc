package execution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

// SpotOrderGateway places market orders on the spot venue. The venue already
// uses lower-case sides, so the request is passed through as is.
type SpotOrderGateway struct {
	exchange domain.SpotExchange
	logger   *slog.Logger
}

func NewSpotOrderGateway(exchange domain.SpotExchange, logger *slog.Logger) *SpotOrderGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpotOrderGateway{exchange: exchange, logger: logger}
}

// PlaceSpotOrder submits a market order of size (base currency) on market.
func (g *SpotOrderGateway) PlaceSpotOrder(ctx context.Context, market string, side domain.Side, size decimal.Decimal) (domain.OrderLeg, error) {
	req := domain.SpotOrderRequest{
		Market:   market,
		Side:     side.String(),
		Size:     size,
		ClientID: uuid.NewString(),
	}

	g.logger.InfoContext(ctx, "Submitting spot order",
		slog.String("venue", g.exchange.Name()),
		slog.String("market", req.Market),
		slog.String("side", req.Side),
		slog.String("size", req.Size.String()),
		slog.String("client_id", req.ClientID))

	resp, err := g.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return domain.OrderLeg{}, fmt.Errorf("place spot order %s: %w", market, err)
	}
	if resp == nil || !resp.Success || resp.Result == nil {
		msg := "empty response"
		if resp != nil && resp.Error != "" {
			msg = resp.Error
		}
		return domain.OrderLeg{}, &domain.OrderRejected{Provider: domain.ProviderSpot, Message: msg}
	}

	res := resp.Result
	if res.ID == "" || res.Market == "" {
		return domain.OrderLeg{}, malformed(domain.ProviderSpot, "missing id or market")
	}
	legSide, err := domain.ParseSide(res.Side)
	if err != nil {
		return domain.OrderLeg{}, malformed(domain.ProviderSpot, err.Error())
	}
	createdAt, err := parseVenueTime(res.CreatedAt)
	if err != nil {
		return domain.OrderLeg{}, malformed(domain.ProviderSpot, err.Error())
	}

	return domain.OrderLeg{
		Provider:  domain.ProviderSpot,
		Venue:     g.exchange.Name(),
		Symbol:    res.Market,
		Side:      legSide,
		Size:      res.Size,
		OrderID:   res.ID,
		CreatedAt: createdAt,
	}, nil
}
