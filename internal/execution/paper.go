package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"convert_go/internal/domain"
)

// Fill represents a simulated order fill.
type Fill struct {
	OrderID  string
	Symbol   string
	Side     string
	Price    decimal.Decimal
	Size     decimal.Decimal
	FilledAt time.Time
}

// quarterly month codes used in futures names (H=Mar, M=Jun, U=Sep, Z=Dec).
var quarterCodes = map[time.Month]byte{
	time.March:     'H',
	time.June:      'M',
	time.September: 'U',
	time.December:  'Z',
}

// PaperFutures simulates the futures venue: it lists the next quarterly
// contracts for each base and fills any order on a listed symbol.
type PaperFutures struct {
	bases []domain.Currency
	now   func() time.Time

	mu    sync.Mutex
	fills []Fill
}

func NewPaperFutures(bases ...domain.Currency) *PaperFutures {
	if len(bases) == 0 {
		bases = []domain.Currency{domain.BTC, domain.ETH}
	}
	return &PaperFutures{bases: bases, now: time.Now}
}

func (p *PaperFutures) Name() string { return "paper" }

// ListInstruments returns the two nearest quarterlies per base, plus the
// perpetual, the way a live venue mixes them.
func (p *PaperFutures) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now().UTC()
	var out []domain.Instrument
	for _, base := range p.bases {
		out = append(out, domain.Instrument{
			Name:          string(base) + string(domain.USD),
			Alias:         string(base) + string(domain.USD),
			BaseCurrency:  base,
			QuoteCurrency: domain.USD,
			Status:        domain.InstrumentTrading,
		})
		for _, expiry := range nextQuarterlies(now, 2) {
			out = append(out, quarterlyInstrument(base, expiry))
		}
	}
	return out, nil
}

func (p *PaperFutures) SubmitOrder(ctx context.Context, req domain.FuturesOrderRequest) (*domain.FuturesOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listed, err := p.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, inst := range listed {
		if inst.Name == req.Symbol {
			found = true
			break
		}
	}
	if !found {
		return &domain.FuturesOrderResponse{Message: "symbol not exists"}, nil
	}
	if req.Qty <= 0 {
		return &domain.FuturesOrderResponse{Message: "order qty must be positive"}, nil
	}

	now := p.now().UTC()
	fill := Fill{
		OrderID:  uuid.NewString(),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Size:     decimal.NewFromInt(req.Qty),
		FilledAt: now,
	}
	p.record(fill)

	slog.Info("PAPER EXECUTION: Futures Order Filled",
		slog.String("id", fill.OrderID),
		slog.String("symbol", fill.Symbol),
		slog.String("side", fill.Side),
		slog.Int64("qty", req.Qty))

	return &domain.FuturesOrderResponse{Result: &domain.FuturesOrderResult{
		OrderID:   fill.OrderID,
		Symbol:    fill.Symbol,
		Side:      fill.Side,
		Qty:       fill.Size,
		CreatedAt: now.Format(time.RFC3339Nano),
	}}, nil
}

func (p *PaperFutures) record(f Fill) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fills = append(p.fills, f)
}

// GetFills returns all executed fills.
func (p *PaperFutures) GetFills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]Fill, len(p.fills))
	copy(result, p.fills)
	return result
}

// PaperSpot simulates the spot venue. Market orders fill at the last price
// set with UpdatePrice, or at the live quote when built with quotes; the
// same prices are quoted to the price jobs.
type PaperSpot struct {
	quotes domain.MarketPriceSource

	mu     sync.Mutex
	prices map[string]decimal.Decimal
	fills  []Fill
	now    func() time.Time
}

func NewPaperSpot() *PaperSpot {
	return &PaperSpot{prices: make(map[string]decimal.Decimal), now: time.Now}
}

// NewQuotedPaperSpot fills orders at the price quotes reports for the market.
func NewQuotedPaperSpot(quotes domain.MarketPriceSource) *PaperSpot {
	p := NewPaperSpot()
	p.quotes = quotes
	return p
}

func (p *PaperSpot) Name() string { return "paper" }

// UpdatePrice updates current market price for a market.
func (p *PaperSpot) UpdatePrice(market string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[market] = price
}

func (p *PaperSpot) MarketPrice(ctx context.Context, market string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if p.quotes != nil {
		return p.quotes.MarketPrice(ctx, market)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[market]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price available for %s", market)
	}
	return price, nil
}

func (p *PaperSpot) PlaceOrder(ctx context.Context, req domain.SpotOrderRequest) (*domain.SpotOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var quoted decimal.Decimal
	if p.quotes != nil {
		q, err := p.quotes.MarketPrice(ctx, req.Market)
		if err != nil || !q.IsPositive() {
			return &domain.SpotOrderResponse{Error: "No such market: " + req.Market}, nil
		}
		quoted = q
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.prices[req.Market]
	if p.quotes != nil {
		price, ok = quoted, true
	}
	if !ok {
		return &domain.SpotOrderResponse{Error: "No such market: " + req.Market}, nil
	}
	if !req.Size.IsPositive() {
		return &domain.SpotOrderResponse{Error: "Size too small"}, nil
	}

	now := p.now().UTC()
	fill := Fill{
		OrderID:  uuid.NewString(),
		Symbol:   req.Market,
		Side:     req.Side,
		Price:    price,
		Size:     req.Size,
		FilledAt: now,
	}
	p.fills = append(p.fills, fill)

	slog.Info("PAPER EXECUTION: Spot Order Filled",
		slog.String("id", fill.OrderID),
		slog.String("market", fill.Symbol),
		slog.String("side", fill.Side),
		slog.String("price", price.String()),
		slog.String("size", req.Size.String()))

	return &domain.SpotOrderResponse{Success: true, Result: &domain.SpotOrderResult{
		ID:        fill.OrderID,
		Market:    fill.Symbol,
		Side:      fill.Side,
		Size:      fill.Size,
		CreatedAt: now.Format(time.RFC3339Nano),
	}}, nil
}

// GetFills returns all executed fills.
func (p *PaperSpot) GetFills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]Fill, len(p.fills))
	copy(result, p.fills)
	return result
}

// nextQuarterlies returns the next n quarterly expiries on or after the day of now.
func nextQuarterlies(now time.Time, n int) []time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []time.Time
	year, month := now.Year(), now.Month()
	for len(out) < n {
		if _, ok := quarterCodes[month]; ok {
			if expiry := lastFriday(year, month); !expiry.Before(today) {
				out = append(out, expiry)
			}
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return out
}

func lastFriday(year int, month time.Month) time.Time {
	d := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func quarterlyInstrument(base domain.Currency, expiry time.Time) domain.Instrument {
	prefix := string(base) + string(domain.USD)
	return domain.Instrument{
		Name:          fmt.Sprintf("%s%c%s", prefix, quarterCodes[expiry.Month()], expiry.Format("06")),
		Alias:         fmt.Sprintf("%s%02d%02d", prefix, int(expiry.Month()), expiry.Day()),
		BaseCurrency:  base,
		QuoteCurrency: domain.USD,
		Status:        domain.InstrumentTrading,
	}
}
