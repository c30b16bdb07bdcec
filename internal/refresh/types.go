package refresh

import (
	"context"
	"time"
)

// Refresher re-evaluates the latest snapshot. It reports false when there is
// nothing to refresh yet.
type Refresher interface {
	Execute(ctx context.Context) (bool, error)
}

// Cycle describes one refresh attempt
type Cycle struct {
	RanAt     time.Time     `json:"ranAt"`
	Refreshed bool          `json:"refreshed"`
	Duration  time.Duration `json:"durationNs"`
}

// Status is a point-in-time view of the runner for probes
type Status struct {
	StartedAt time.Time     `json:"startedAt"`
	Interval  time.Duration `json:"intervalNs"`
	LastRunAt time.Time     `json:"lastRunAt"`
	NextRunAt time.Time     `json:"nextRunAt"`
	LastError string        `json:"lastError,omitempty"`
	Runs      int           `json:"runs"`
	Failures  int           `json:"failures"`
	LastCycle *Cycle        `json:"lastCycle,omitempty"`
}

// Check is a named readiness dependency (database, cache)
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}
