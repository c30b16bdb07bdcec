package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/mission-control/pkg/logger"
)

const cycleTimeout = 10 * time.Second

// Runner periodically re-evaluates the latest snapshot so that
// time-dependent outputs stay current without new data.
type Runner struct {
	refresher Refresher
	log       *logger.Logger
	interval  time.Duration
	now       func() time.Time

	runMu sync.Mutex

	mu        sync.RWMutex
	startedAt time.Time
	lastRunAt time.Time
	nextRunAt time.Time
	lastError string
	runs      int
	failures  int
	lastCycle *Cycle
}

func NewRunner(refresher Refresher, log *logger.Logger, interval time.Duration) *Runner {
	now := time.Now()
	return &Runner{
		refresher: refresher,
		log:       log,
		interval:  interval,
		now:       time.Now,
		startedAt: now,
		nextRunAt: now.Add(interval),
	}
}

// WithClock подменяет источник времени (для тестов)
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	r.startedAt = now()
	r.nextRunAt = r.startedAt.Add(r.interval)
	return r
}

func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.scheduleNext(r.now())
	r.log.Info("Refresh runner started", "interval", r.interval.String())

	for {
		select {
		case <-ticker.C:
			r.scheduleNext(r.now())
			// RunOnce already stores error state and logs context.
			_, _ = r.RunOnce(ctx)
		case <-ctx.Done():
			r.log.Info("Refresh runner stopped")
			return
		}
	}
}

func (r *Runner) RunOnce(ctx context.Context) (*Cycle, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	cycleCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	startedAt := r.now()
	refreshed, err := r.refresher.Execute(cycleCtx)
	cycle := &Cycle{
		RanAt:     startedAt,
		Refreshed: refreshed,
		Duration:  r.now().Sub(startedAt),
	}

	if err != nil {
		wrappedErr := fmt.Errorf("refresh cycle failed: %w", err)
		r.updateFailure(cycle, wrappedErr)
		r.log.Error("Refresh cycle failed", wrappedErr)
		return nil, wrappedErr
	}

	r.updateSuccess(cycle)

	if !refreshed {
		r.log.Debug("Refresh cycle skipped, no snapshot received yet")
		return cycle, nil
	}

	r.log.Info("Refresh cycle completed", "duration", cycle.Duration.String())
	return cycle, nil
}

// NextRunAt возвращает время следующего запланированного обновления
func (r *Runner) NextRunAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextRunAt
}

func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := Status{
		StartedAt: r.startedAt,
		Interval:  r.interval,
		LastRunAt: r.lastRunAt,
		NextRunAt: r.nextRunAt,
		LastError: r.lastError,
		Runs:      r.runs,
		Failures:  r.failures,
	}
	if r.lastCycle != nil {
		copied := *r.lastCycle
		status.LastCycle = &copied
	}
	return status
}

func (r *Runner) scheduleNext(from time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRunAt = from.Add(r.interval)
}

func (r *Runner) updateFailure(cycle *Cycle, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = cycle.RanAt
	r.lastError = err.Error()
	r.runs++
	r.failures++
}

func (r *Runner) updateSuccess(cycle *Cycle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = cycle.RanAt
	r.lastError = ""
	r.runs++
	r.lastCycle = cycle
}
