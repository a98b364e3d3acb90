// Package worker runs the background rollover scheduler.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/covenant-app/covenant-api/internal/service"
)

// Worker drives day-rollover detection. Two sources feed the same check:
// a poll ticker and an explicit foreground signal from the HTTP layer
// (the client reports app foregrounding so a rollover lands immediately
// instead of on the next tick). The check itself is re-entrancy guarded,
// so overlapping signals collapse to one run.
type Worker struct {
	dailySvc     *service.DailyService
	pollInterval time.Duration
	foreground   chan struct{}
	stop         chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	PollInterval time.Duration
}

// New creates a new rollover worker.
func New(dailySvc *service.DailyService, cfg Config, logger *slog.Logger) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		dailySvc:     dailySvc,
		pollInterval: cfg.PollInterval,
		foreground:   make(chan struct{}, 1),
		stop:         make(chan struct{}),
		logger:       logger.With("component", "worker"),
	}
}

// Start begins the rollover loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "poll_interval", w.pollInterval)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

// NotifyForeground signals that the client came to the foreground. The
// signal channel holds one pending notification; further signals while
// one is queued are dropped.
func (w *Worker) NotifyForeground() {
	select {
	case w.foreground <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		case <-w.foreground:
			w.check(ctx)
		}
	}
}

func (w *Worker) check(ctx context.Context) {
	result := w.dailySvc.CheckDateChange(ctx)
	if result.DateChanged {
		w.logger.Info("rollover processed",
			"previous_date", result.PreviousDate,
			"current_date", result.CurrentDate,
			"penalty_applied", result.PenaltyApplied,
		)
	}
}
