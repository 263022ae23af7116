package loop

import (
	"testing"
	"time"
)

func TestIntervalSchedulerFires(t *testing.T) {
	s := NewIntervalScheduler(5 * time.Millisecond)

	fired := make(chan struct{})
	s.Schedule(func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled tick never fired")
	}
}

func TestIntervalSchedulerCancel(t *testing.T) {
	s := NewIntervalScheduler(50 * time.Millisecond)

	fired := make(chan struct{})
	h := s.Schedule(func() { close(fired) })

	if !h.Cancel() {
		t.Fatal("Cancel returned false for a pending tick")
	}

	select {
	case <-fired:
		t.Fatal("cancelled tick fired anyway")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRefreshSchedulerPeriod(t *testing.T) {
	tests := []struct {
		name string
		hz   float64
		want time.Duration
	}{
		{"60hz", 60, time.Second / 60},
		{"30hz", 30, time.Second / 30},
		{"zero falls back to 60hz", 0, time.Second / 60},
		{"negative falls back to 60hz", -5, time.Second / 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRefreshScheduler(tt.hz)
			if got := s.Period(); got != tt.want {
				t.Errorf("Period() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshSchedulerFiresWithinPeriod(t *testing.T) {
	s := NewRefreshScheduler(100) // 10ms period

	fired := make(chan struct{})
	start := time.Now()
	s.Schedule(func() { close(fired) })

	select {
	case <-fired:
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("tick fired after %v, want within one refresh period plus slack", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled tick never fired")
	}
}

func TestNewSchedulerSelectsStrategy(t *testing.T) {
	fixed := NewScheduler(Config{Scheduling: FixedInterval, Interval: 100 * time.Millisecond})
	if _, ok := fixed.(IntervalScheduler); !ok {
		t.Errorf("fixed-interval config built %T", fixed)
	}

	synced := NewScheduler(Config{Scheduling: DisplaySynced, RefreshHz: 60})
	if _, ok := synced.(RefreshScheduler); !ok {
		t.Errorf("display-synced config built %T", synced)
	}

	fallback := NewScheduler(Config{Scheduling: FixedInterval})
	if s, ok := fallback.(IntervalScheduler); !ok || s.Period != 100*time.Millisecond {
		t.Errorf("zero interval config built %T %+v, want 100ms interval", fallback, fallback)
	}
}
