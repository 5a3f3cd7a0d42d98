package invoker

import (
	"errors"
	"sync"
	"time"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
)

// ErrBreakerOpen is returned by Allow while the breaker rejects calls.
var ErrBreakerOpen = errors.New("invoker: circuit breaker is open")

// BreakerState represents the current state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed allows all requests through. Failures are counted.
	BreakerClosed BreakerState = iota
	// BreakerHalfOpen lets trial requests through after the open timeout.
	BreakerHalfOpen
	// BreakerOpen rejects all requests immediately.
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// minErrorRateSamples is the minimum number of calls in a window before the
// error rate threshold is evaluated.
const minErrorRateSamples = 10

// CircuitBreaker trips on either a run of consecutive failures or an error
// rate within a tumbling window, stays open for a timeout, then lets trial
// requests through until enough succeed. It is safe for concurrent use.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	openedAt         time.Time
	now              func() time.Time
	onChange         func(BreakerState)

	errorRateThreshold float64
	errorRateWindow    time.Duration
	windowStart        time.Time
	windowTotal        int
	windowFailures     int
}

// NewCircuitBreaker creates a breaker from a service's breaker settings.
// Zero values fall back to 5 failures, 2 trial successes and a 30s timeout;
// a zero error rate threshold or window disables rate-based tripping.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:              BreakerClosed,
		failureThreshold:   cfg.FailureThreshold,
		successThreshold:   cfg.SuccessThreshold,
		timeout:            cfg.Timeout,
		errorRateThreshold: cfg.ErrorRateThreshold,
		errorRateWindow:    cfg.ErrorRateWindow,
		now:                time.Now,
	}
	if cb.failureThreshold < 1 {
		cb.failureThreshold = 5
	}
	if cb.successThreshold < 1 {
		cb.successThreshold = 2
	}
	if cb.timeout <= 0 {
		cb.timeout = 30 * time.Second
	}
	cb.windowStart = cb.now()
	return cb
}

// OnStateChange registers fn to be called, with the lock held, whenever the
// breaker changes state. fn must not call back into the breaker.
func (cb *CircuitBreaker) OnStateChange(fn func(BreakerState)) {
	cb.mu.Lock()
	cb.onChange = fn
	cb.mu.Unlock()
}

// Allow reports whether a call may proceed. It returns ErrBreakerOpen while
// the breaker is open and its timeout has not elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeHalfOpen()
	if cb.state == BreakerOpen {
		return ErrBreakerOpen
	}
	return nil
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failures = 0
		cb.recordWindowCall(false)
	case BreakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.failures = 0
			cb.successes = 0
			cb.resetWindow()
			cb.transition(BreakerClosed)
		}
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failures++
		cb.recordWindowCall(true)
		if cb.failures >= cb.failureThreshold || cb.errorRateExceeded() {
			cb.open()
		}
	case BreakerHalfOpen:
		cb.successes = 0
		cb.open()
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return cb.state
}

// ErrorRate returns the error rate and call count of the current window.
func (cb *CircuitBreaker) ErrorRate() (rate float64, total int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeResetWindow()
	if cb.windowTotal == 0 {
		return 0, 0
	}
	return float64(cb.windowFailures) / float64(cb.windowTotal), cb.windowTotal
}

// The helpers below must be called with mu held.

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.resetWindow()
	cb.transition(BreakerOpen)
}

func (cb *CircuitBreaker) maybeHalfOpen() {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) > cb.timeout {
		cb.successes = 0
		cb.transition(BreakerHalfOpen)
	}
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	if cb.state == to {
		return
	}
	cb.state = to
	if cb.onChange != nil {
		cb.onChange(to)
	}
}

func (cb *CircuitBreaker) recordWindowCall(isFailure bool) {
	if cb.errorRateWindow <= 0 {
		return
	}
	cb.maybeResetWindow()
	cb.windowTotal++
	if isFailure {
		cb.windowFailures++
	}
}

func (cb *CircuitBreaker) maybeResetWindow() {
	if cb.errorRateWindow > 0 && cb.now().Sub(cb.windowStart) > cb.errorRateWindow {
		cb.resetWindow()
	}
}

func (cb *CircuitBreaker) resetWindow() {
	cb.windowStart = cb.now()
	cb.windowTotal = 0
	cb.windowFailures = 0
}

func (cb *CircuitBreaker) errorRateExceeded() bool {
	if cb.errorRateThreshold <= 0 || cb.errorRateWindow <= 0 {
		return false
	}
	if cb.windowTotal < minErrorRateSamples {
		return false
	}
	return float64(cb.windowFailures)/float64(cb.windowTotal) >= cb.errorRateThreshold
}
