package invoker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
)

// fakeClock drives the breaker's notion of time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg config.CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.now
	cb.windowStart = clock.now()
	return cb, clock
}

func TestCircuitBreaker_defaults(t *testing.T) {
	cb := NewCircuitBreaker(config.CircuitBreakerConfig{})
	if cb.failureThreshold != 5 || cb.successThreshold != 2 || cb.timeout != 30*time.Second {
		t.Errorf("defaults = %d/%d/%v", cb.failureThreshold, cb.successThreshold, cb.timeout)
	}
	if s := cb.State(); s != BreakerClosed {
		t.Errorf("initial state = %v, want closed", s)
	}
}

func TestCircuitBreaker_opensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(config.CircuitBreakerConfig{FailureThreshold: 3})

	cb.RecordFailure()
	cb.RecordFailure()
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after 2 failures = %v, want nil", err)
	}

	cb.RecordFailure()
	if s := cb.State(); s != BreakerOpen {
		t.Errorf("state after 3 failures = %v, want open", s)
	}
	if err := cb.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Allow() = %v, want ErrBreakerOpen", err)
	}
}

func TestCircuitBreaker_successResetsFailureRun(t *testing.T) {
	cb, _ := newTestBreaker(config.CircuitBreakerConfig{FailureThreshold: 3})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if s := cb.State(); s != BreakerClosed {
		t.Errorf("state = %v, want closed", s)
	}
}

func TestCircuitBreaker_halfOpenLifecycle(t *testing.T) {
	cb, clock := newTestBreaker(config.CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	})

	cb.RecordFailure()
	if s := cb.State(); s != BreakerOpen {
		t.Fatalf("state = %v, want open", s)
	}

	clock.advance(500 * time.Millisecond)
	if err := cb.Allow(); err == nil {
		t.Fatal("Allow() before timeout should fail")
	}

	clock.advance(time.Second)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v, want nil", err)
	}
	if s := cb.State(); s != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open", s)
	}

	cb.RecordSuccess()
	if s := cb.State(); s != BreakerHalfOpen {
		t.Errorf("state after 1 trial success = %v, want half-open", s)
	}
	cb.RecordSuccess()
	if s := cb.State(); s != BreakerClosed {
		t.Errorf("state after 2 trial successes = %v, want closed", s)
	}
}

func TestCircuitBreaker_halfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(config.CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Second})

	cb.RecordFailure()
	clock.advance(2 * time.Second)
	_ = cb.Allow()

	cb.RecordFailure()
	if s := cb.State(); s != BreakerOpen {
		t.Errorf("state = %v, want open after trial failure", s)
	}
}

func TestCircuitBreaker_errorRateTrips(t *testing.T) {
	cb, _ := newTestBreaker(config.CircuitBreakerConfig{
		FailureThreshold:   100,
		ErrorRateThreshold: 0.5,
		ErrorRateWindow:    time.Minute,
	})

	// Alternate so the consecutive run never exceeds 1.
	for i := 0; i < 9; i++ {
		if i%2 == 0 {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}
	if s := cb.State(); s != BreakerClosed {
		t.Fatalf("state below min samples = %v, want closed", s)
	}

	cb.RecordFailure() // 10 calls, 6 failures
	if s := cb.State(); s != BreakerOpen {
		t.Errorf("state = %v, want open on error rate", s)
	}
}

func TestCircuitBreaker_windowResets(t *testing.T) {
	cb, clock := newTestBreaker(config.CircuitBreakerConfig{
		FailureThreshold:   100,
		ErrorRateThreshold: 0.5,
		ErrorRateWindow:    time.Minute,
	})

	cb.RecordFailure()
	cb.RecordSuccess()
	if rate, total := cb.ErrorRate(); total != 2 || rate != 0.5 {
		t.Fatalf("ErrorRate() = %v/%d, want 0.5/2", rate, total)
	}

	clock.advance(2 * time.Minute)
	if rate, total := cb.ErrorRate(); total != 0 || rate != 0 {
		t.Errorf("ErrorRate() after window = %v/%d, want 0/0", rate, total)
	}
}

func TestCircuitBreaker_onStateChange(t *testing.T) {
	cb, clock := newTestBreaker(config.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second})

	var got []BreakerState
	cb.OnStateChange(func(s BreakerState) { got = append(got, s) })

	cb.RecordFailure()
	clock.advance(2 * time.Second)
	_ = cb.Allow()
	cb.RecordSuccess()

	want := []BreakerState{BreakerOpen, BreakerHalfOpen, BreakerClosed}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCircuitBreaker_concurrentUse(t *testing.T) {
	cb := NewCircuitBreaker(config.CircuitBreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Allow()
			if i%2 == 0 {
				cb.RecordFailure()
			} else {
				cb.RecordSuccess()
			}
			_ = cb.State()
		}(i)
	}
	wg.Wait()
}

func TestBreakerState_String(t *testing.T) {
	for state, want := range map[BreakerState]string{
		BreakerClosed:    "closed",
		BreakerOpen:      "open",
		BreakerHalfOpen:  "half-open",
		BreakerState(42): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
