package valueobject

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeRange возвращается при некорректных границах окна истории
var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange окно выборки истории оценок (Value Object)
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает окно [start, end]
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, fmt.Errorf("%w: start and end times cannot be zero", ErrInvalidTimeRange)
	}
	if start.After(end) {
		return TimeRange{}, fmt.Errorf("%w: start time must be before end time", ErrInvalidTimeRange)
	}

	return TimeRange{start: start, end: end}, nil
}

// NewTimeRangeEndingAt создает окно длиной duration, заканчивающееся в end
func NewTimeRangeEndingAt(end time.Time, duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, fmt.Errorf("%w: duration must be positive", ErrInvalidTimeRange)
	}
	return NewTimeRange(end.Add(-duration), end)
}

// NewTimeRangeFromDuration создает окно от now-duration до текущего момента
func NewTimeRangeFromDuration(duration time.Duration) (TimeRange, error) {
	return NewTimeRangeEndingAt(time.Now(), duration)
}

func (tr TimeRange) Start() time.Time {
	return tr.start
}

func (tr TimeRange) End() time.Time {
	return tr.end
}

// Contains включает обе границы
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && !t.After(tr.end)
}
