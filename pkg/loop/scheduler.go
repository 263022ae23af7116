package loop

import (
	"time"
)

// Handle identifies one pending scheduled tick.
type Handle interface {
	// Cancel stops the pending tick if it has not fired yet and
	// reports whether it was cancelled in time.
	Cancel() bool
}

// Scheduler arms a single future tick. The loop re-arms only after the
// current tick's full body (including cleanup) completes, so at most
// one tick is ever pending and model executions never overlap.
type Scheduler interface {
	Schedule(fn func()) Handle
}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.t.Stop()
}

// IntervalScheduler fires a fixed period after each arm. This is the
// fixed-interval strategy.
type IntervalScheduler struct {
	Period time.Duration
}

// NewIntervalScheduler creates a fixed-interval scheduler.
func NewIntervalScheduler(period time.Duration) IntervalScheduler {
	return IntervalScheduler{Period: period}
}

// Schedule arms fn to run one period from now.
func (s IntervalScheduler) Schedule(fn func()) Handle {
	return timerHandle{t: time.AfterFunc(s.Period, fn)}
}

// RefreshScheduler approximates display-synced pacing on a headless
// host: ticks fire on the next multiple of the display refresh period
// rather than a fixed delay, so cadence stays phase-locked to the
// refresh signal regardless of how long a tick body took.
type RefreshScheduler struct {
	period time.Duration
}

// NewRefreshScheduler creates a display-synced scheduler for the given
// refresh rate in Hz.
func NewRefreshScheduler(hz float64) RefreshScheduler {
	if hz <= 0 {
		hz = 60
	}
	return RefreshScheduler{period: time.Duration(float64(time.Second) / hz)}
}

// Period returns the derived refresh period.
func (s RefreshScheduler) Period() time.Duration {
	return s.period
}

// Schedule arms fn to run at the next refresh boundary.
func (s RefreshScheduler) Schedule(fn func()) Handle {
	delay := s.period - time.Duration(time.Now().UnixNano())%s.period
	return timerHandle{t: time.AfterFunc(delay, fn)}
}
