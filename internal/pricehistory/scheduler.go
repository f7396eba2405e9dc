package pricehistory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs the update and purge jobs on fixed intervals until its
// context ends. The first update runs immediately on Start.
type Scheduler struct {
	updater     *Updater
	updateEvery time.Duration
	purgeEvery  time.Duration
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(u *Updater, updateEvery, purgeEvery time.Duration) *Scheduler {
	if updateEvery <= 0 {
		updateEvery = time.Minute
	}
	if purgeEvery <= 0 {
		purgeEvery = time.Hour
	}
	return &Scheduler{updater: u, updateEvery: updateEvery, purgeEvery: purgeEvery, logger: u.logger}
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runUpdate(ctx)

		updates := time.NewTicker(s.updateEvery)
		defer updates.Stop()
		purges := time.NewTicker(s.purgeEvery)
		defer purges.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Price scheduler stopped")
				return
			case <-updates.C:
				s.runUpdate(ctx)
			case <-purges.C:
				s.runPurge(ctx)
			}
		}
	}()
}

// Stop cancels the jobs and waits for the running one to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
}

// recoverJob keeps a panicking job from ending the scheduler loop; the
// next tick runs the job again.
func (s *Scheduler) recoverJob(job string) {
	if r := recover(); r != nil {
		s.logger.Error("Price job panic recovered", slog.String("job", job), slog.Any("panic", r))
	}
}

func (s *Scheduler) runUpdate(ctx context.Context) {
	defer s.recoverJob("update")
	n, err := s.updater.UpdateMarketPrices(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("Price update finished with errors", slog.Int("recorded", n), slog.Any("error", err))
	}
}

func (s *Scheduler) runPurge(ctx context.Context) {
	defer s.recoverJob("purge")
	if _, err := s.updater.PurgeOldPrices(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("Price purge finished with errors", slog.Any("error", err))
	}
}
