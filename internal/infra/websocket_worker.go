package infra

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamHandler holds the venue-specific part of a websocket subscription.
type StreamHandler interface {
	ID() string
	URL() string
	// OnConnect sends subscriptions; it runs again after every reconnect.
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	// OnPing sends the venue's keep-alive.
	OnPing(ctx context.Context, conn *websocket.Conn) error
}

// StreamWorker keeps one websocket connection alive, reconnecting with
// backoff until its context ends. Writes are serialized.
type StreamWorker struct {
	handler StreamHandler
	logger  *slog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ReadTimeout  time.Duration
	PingInterval time.Duration
	Backoff      Backoff
	UserAgent    string
}

func NewStreamWorker(handler StreamHandler, logger *slog.Logger) *StreamWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamWorker{
		handler:      handler,
		logger:       logger.With(slog.String("stream", handler.ID())),
		ReadTimeout:  60 * time.Second,
		PingInterval: 15 * time.Second,
		Backoff:      DefaultBackoff,
		UserAgent:    UserAgent(""),
	}
}

// Start runs the connection loop in the background.
func (w *StreamWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker and waits for it to exit.
func (w *StreamWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *StreamWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for ctx.Err() == nil {
		if err := w.connect(ctx); err != nil {
			delay := w.Backoff.Delay(retry)
			w.logger.Warn("Stream connect failed",
				slog.Any("error", err),
				slog.Int("retry", retry),
				slog.Duration("delay", delay))
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.process(ctx)
	}
}

func (w *StreamWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", w.UserAgent)

	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), header)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("subscribe: %w", err)
	}

	if w.PingInterval > 0 {
		go w.pingLoop(ctx, conn)
	}

	w.logger.Info("Stream connected")
	return nil
}

func (w *StreamWorker) process(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		_ = c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("Stream read failed", slog.Any("error", err))
			}
			w.close()
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

// pingLoop exits when conn is replaced or closed.
func (w *StreamWorker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			current := w.conn
			w.mu.RUnlock()
			if current != conn {
				return
			}
			w.writeMu.Lock()
			err := w.handler.OnPing(ctx, conn)
			w.writeMu.Unlock()
			if err != nil {
				w.logger.Warn("Stream ping failed", slog.Any("error", err))
				w.close()
				return
			}
		}
	}
}

// WriteJSON sends v on the current connection.
func (w *StreamWorker) WriteJSON(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("stream %s not connected", w.handler.ID())
	}
	return c.WriteJSON(v)
}

func (w *StreamWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}
