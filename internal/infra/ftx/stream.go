package ftx

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"convert_go/internal/infra"
)

var _ infra.StreamHandler = (*TickerStream)(nil)

// Tick is one ticker update.
type Tick struct {
	Market string
	Last   decimal.Decimal
	Time   time.Time
}

// TickerStream subscribes to the ticker channel of each market and hands
// every update with a last price to OnTick.
type TickerStream struct {
	url     string
	markets []string
	onTick  func(ctx context.Context, t Tick)
	logger  *slog.Logger
}

func NewTickerStream(wsURL string, markets []string, onTick func(ctx context.Context, t Tick), logger *slog.Logger) *TickerStream {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TickerStream{url: wsURL, markets: markets, onTick: onTick, logger: logger}
}

func (s *TickerStream) ID() string  { return "ftx-ticker" }
func (s *TickerStream) URL() string { return s.url }

func (s *TickerStream) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	for _, m := range s.markets {
		sub := map[string]string{"op": "subscribe", "channel": "ticker", "market": m}
		if err := conn.WriteJSON(sub); err != nil {
			return err
		}
	}
	return nil
}

func (s *TickerStream) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteJSON(map[string]string{"op": "ping"})
}

func (s *TickerStream) OnMessage(ctx context.Context, msg []byte) {
	var m tickerMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.logger.Warn("Undecodable ticker message", slog.Any("error", err))
		return
	}
	switch m.Type {
	case "update":
	case "error":
		s.logger.Error("Ticker stream error", slog.Int("code", m.Code), slog.String("msg", m.Msg))
		return
	default:
		// subscribed, pong, info
		return
	}
	if m.Channel != "ticker" || m.Data.Last == nil {
		return
	}

	sec, frac := math.Modf(m.Data.Time)
	s.onTick(ctx, Tick{
		Market: m.Market,
		Last:   *m.Data.Last,
		Time:   time.Unix(int64(sec), int64(frac*1e9)).UTC(),
	})
}
