package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"convert_go/internal/infra"
	"convert_go/internal/infra/ftx"
	"convert_go/internal/pricehistory"
)

// Serve runs the price jobs, the optional ticker stream and the metrics
// endpoint until ctx ends.
func (b *Bootstrap) Serve(ctx context.Context) error {
	cfg := b.Config

	workDir := infra.ModeDir("data", cfg.Trading.Mode)
	if err := infra.EnsureDir(workDir); err != nil {
		return err
	}
	unlock, err := infra.CreateLockFile(workDir, "serve")
	if err != nil {
		return err
	}
	defer unlock()

	scheduler := pricehistory.NewScheduler(b.Updater,
		time.Duration(cfg.Prices.UpdateIntervalSec)*time.Second,
		time.Duration(cfg.Prices.PurgeIntervalSec)*time.Second)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.Prices.Stream {
		stream := ftx.NewTickerStream(cfg.Exchanges.FTX.WSURL, cfg.TargetMarkets(), func(ctx context.Context, t ftx.Tick) {
			if err := b.Updater.RecordTick(ctx, t.Market, t.Last, t.Time); err != nil {
				b.Logger.Warn("Failed to record tick", slog.String("market", t.Market), slog.Any("error", err))
			}
		}, b.Logger)
		worker := infra.NewStreamWorker(stream, b.Logger)
		worker.UserAgent = infra.UserAgent(cfg.App.Version)
		worker.Start(ctx)
		defer worker.Stop()
		b.Logger.Info("Ticker stream started", slog.Int("markets", len(cfg.TargetMarkets())))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		b.Logger.Info("Metrics server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	b.Logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
