package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/command"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Action is one mutating operation of a page.
type Action[P any] struct {
	Name string

	// Validate runs before any network call. A non-empty result keeps the
	// dialog open and skips Do.
	Validate func(P) []model.FieldError

	Do func(ctx context.Context, payload P) error
}

// Request is a single dispatch of an action.
type Request[P any] struct {
	// Key scopes the in-flight guard, typically one button or dialog of one
	// record, for example "arrival:42:receive".
	Key            string
	IdempotencyKey string
	Payload        P
}

// ReloadFunc re-runs the page loader after a successful action and returns
// the refreshed view model.
type ReloadFunc func(ctx context.Context) any

// Dispatcher runs actions with a per-key in-flight guard and optional
// idempotency.
type Dispatcher struct {
	opts        Options
	idempotency command.IdempotencyStore
	ttl         time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// DispatcherOption configures optional dispatcher dependencies.
type DispatcherOption func(*Dispatcher)

// WithIdempotencyStore enables deduplication for requests that carry an
// idempotency key.
func WithIdempotencyStore(store command.IdempotencyStore, ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.idempotency = store
		d.ttl = ttl
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts Options, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		opts:     opts,
		ttl:      24 * time.Hour,
		inFlight: make(map[string]struct{}),
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// InFlight reports whether an action with key is running.
func (d *Dispatcher) InFlight(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[key]
	return ok
}

func (d *Dispatcher) acquire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[key]; busy {
		return false
	}
	d.inFlight[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.inFlight, key)
	d.mu.Unlock()
}

// Dispatch validates the payload, runs the action and on success reloads the
// page exactly once.
//
// The returned outcome is always usable as a response body. The error is
// non-nil whenever the dialog stays open, so the caller can map it to an
// HTTP status.
func Dispatch[P any](ctx context.Context, d *Dispatcher, action Action[P], req Request[P], reload ReloadFunc) (model.ActionOutcome, error) {
	start := time.Now()
	logger := observability.RequestLogger(ctx, d.opts.Logger).With(
		zap.String("action", action.Name),
		zap.String("key", req.Key),
	)

	if action.Validate != nil {
		if fieldErrs := action.Validate(req.Payload); len(fieldErrs) > 0 {
			d.opts.Metrics.RecordValidationFailure(action.Name)
			d.opts.Metrics.RecordActionDispatch(action.Name, observability.OutcomeInvalid, time.Since(start))
			return model.ActionOutcome{DialogOpen: true, FieldErrors: fieldErrs}, model.NewValidationError(fieldErrs)
		}
	}

	var idemKey, hash string
	if d.idempotency != nil && req.IdempotencyKey != "" {
		idemKey = command.FormatIdempotencyKey(model.RequestContextFrom(ctx), action.Name, req.Key, req.IdempotencyKey)
		hash = command.HashPayload(req.Payload)
		cached, found, err := d.idempotency.Check(ctx, idemKey, hash)
		if err != nil {
			d.opts.Metrics.RecordActionDispatch(action.Name, observability.OutcomeFailed, time.Since(start))
			return model.ActionOutcome{DialogOpen: true, Message: model.UserMessage(err)}, err
		}
		if found && cached != nil {
			d.opts.Metrics.RecordActionDispatch(action.Name, observability.OutcomeReplayed, time.Since(start))
			logger.Debug("replaying cached action outcome")
			return *cached, nil
		}
	}

	key := req.Key
	if key == "" {
		key = action.Name
	}
	if !d.acquire(key) {
		d.opts.Metrics.RecordActionDispatch(action.Name, observability.OutcomeInFlight, time.Since(start))
		err := model.NewActionInFlightError(key)
		return model.ActionOutcome{DialogOpen: true, Message: err.Message}, err
	}
	defer d.release(key)

	actx, span := observability.StartSpan(ctx, "action.dispatch",
		observability.AttrAction.String(action.Name))
	err := action.Do(actx, req.Payload)
	observability.EndSpanWithError(span, err)

	if err != nil {
		logActionFailure(logger, err)
		d.opts.Metrics.RecordActionDispatch(action.Name, observability.OutcomeFailed, time.Since(start))
		return model.ActionOutcome{DialogOpen: true, Message: model.UserMessage(err)}, err
	}

	outcome := model.ActionOutcome{DialogOpen: false}
	if reload != nil {
		outcome.Data = reload(ctx)
	}
	d.opts.Metrics.RecordActionDispatch(action.Name, observability.OutcomeSuccess, time.Since(start))

	if idemKey != "" {
		if err := d.idempotency.Store(ctx, idemKey, hash, outcome, d.ttl); err != nil {
			logger.Warn("storing idempotent outcome failed", zap.Error(err))
		}
	}
	return outcome, nil
}

func logActionFailure(logger *zap.Logger, err error) {
	var ee *model.ErrorEnvelope
	if errors.As(err, &ee) && ee.Status >= 400 && ee.Status < 500 {
		logger.Warn("action rejected", zap.Int("status", ee.Status), zap.Error(err))
		return
	}
	if errors.As(err, &ee) && (ee.Code == model.ErrUnauthorized || ee.Code == model.ErrForbidden) {
		logger.Warn("action rejected", zap.String("code", ee.Code), zap.Error(err))
		return
	}
	logger.Error("action failed", zap.Error(err))
}
