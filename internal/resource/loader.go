// Package resource implements the page data lifecycle: loaders that fetch and
// normalize collections, action dispatchers that mutate and resynchronize,
// and fan-out of independent sub-loads.
package resource

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// FetchFunc fetches one normalized collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, envelope.Meta, error)

// State is a snapshot of a loader. Data is never nil.
type State[T any] struct {
	Data      []T           `json:"data"`
	Meta      envelope.Meta `json:"meta"`
	Loading   bool          `json:"loading"`
	Error     string        `json:"error,omitempty"`
	RequestID uint64        `json:"request_id"`

	// Err is the original error of the last committed load.
	Err error `json:"-"`

	// Stale is set on the value returned by a Load whose result was
	// discarded because a newer load started.
	Stale bool `json:"-"`
}

// Options carries the optional dependencies shared by loaders and
// dispatchers.
type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Loader fetches a collection and commits it to its state. Each Load gets a
// monotonically increasing request ID; starting a new Load cancels the
// context of the previous one, and a result whose ID is no longer the latest
// is discarded.
type Loader[T any] struct {
	name  string
	fetch FetchFunc[T]
	opts  Options

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	state  State[T]
}

// NewLoader creates a loader named after the resource it fetches.
func NewLoader[T any](name string, fetch FetchFunc[T], opts Options) *Loader[T] {
	return &Loader[T]{
		name:  name,
		fetch: fetch,
		opts:  opts,
		state: State[T]{Data: []T{}},
	}
}

// Name returns the resource name.
func (l *Loader[T]) Name() string { return l.name }

// Load runs the loader's own fetch function.
func (l *Loader[T]) Load(ctx context.Context) State[T] {
	return l.LoadWith(ctx, l.fetch)
}

// LoadWith runs fetch in place of the loader's own function, for loads whose
// filters changed since the loader was built.
func (l *Loader[T]) LoadWith(ctx context.Context, fetch FetchFunc[T]) State[T] {
	l.mu.Lock()
	l.seq++
	id := l.seq
	if l.cancel != nil {
		l.cancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state.Loading = true
	l.state.Error = ""
	l.state.Err = nil
	l.mu.Unlock()
	defer cancel()

	lctx, span := observability.StartSpan(lctx, "resource.load",
		observability.AttrResource.String(l.name))
	items, meta, err := fetch(lctx)
	observability.EndSpanWithError(span, err)

	l.mu.Lock()
	defer l.mu.Unlock()

	if id != l.seq {
		l.opts.Metrics.RecordStaleDiscard(l.name)
		observability.RequestLogger(ctx, l.opts.Logger).Debug("discarding stale load",
			zap.String("resource", l.name),
			zap.Uint64("request_id", id),
			zap.Uint64("latest_request_id", l.seq),
		)
		snap := l.snapshot()
		snap.Stale = true
		return snap
	}

	l.cancel = nil
	l.state.Loading = false
	l.state.RequestID = id
	if err != nil {
		observability.RequestLogger(ctx, l.opts.Logger).Warn("load failed",
			zap.String("resource", l.name),
			zap.Uint64("request_id", id),
			zap.Error(err),
		)
		l.opts.Metrics.RecordLoad(l.name, "error")
		l.state.Data = []T{}
		l.state.Meta = envelope.Meta{}
		l.state.Error = model.UserMessage(err)
		l.state.Err = err
		return l.snapshot()
	}

	if items == nil {
		items = []T{}
	}
	l.opts.Metrics.RecordLoad(l.name, "ok")
	l.state.Data = items
	l.state.Meta = meta
	return l.snapshot()
}

// State returns a snapshot of the loader.
func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

func (l *Loader[T]) snapshot() State[T] {
	s := l.state
	s.Data = append([]T(nil), l.state.Data...)
	if s.Data == nil {
		s.Data = []T{}
	}
	return s
}

// ObjectState is a snapshot of an ObjectLoader.
type ObjectState[T any] struct {
	Data      *T     `json:"data"`
	Loading   bool   `json:"loading"`
	Error     string `json:"error,omitempty"`
	RequestID uint64 `json:"request_id"`
	Err       error  `json:"-"`
	Stale     bool   `json:"-"`
}

// ObjectLoader is a Loader for detail endpoints that return one record.
type ObjectLoader[T any] struct {
	inner *Loader[T]
}

// NewObjectLoader creates a loader for a single record.
func NewObjectLoader[T any](name string, fetch func(ctx context.Context) (T, error), opts Options) *ObjectLoader[T] {
	return &ObjectLoader[T]{inner: NewLoader(name, wrapObject(fetch), opts)}
}

// Load fetches the record with the same fencing rules as Loader.
func (o *ObjectLoader[T]) Load(ctx context.Context) ObjectState[T] {
	return toObjectState(o.inner.Load(ctx))
}

// LoadWith fetches with fetch in place of the loader's own function.
func (o *ObjectLoader[T]) LoadWith(ctx context.Context, fetch func(ctx context.Context) (T, error)) ObjectState[T] {
	return toObjectState(o.inner.LoadWith(ctx, wrapObject(fetch)))
}

// State returns a snapshot of the loader.
func (o *ObjectLoader[T]) State() ObjectState[T] {
	return toObjectState(o.inner.State())
}

func wrapObject[T any](fetch func(ctx context.Context) (T, error)) FetchFunc[T] {
	return func(ctx context.Context) ([]T, envelope.Meta, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, envelope.Meta{}, err
		}
		return []T{v}, envelope.Meta{Total: 1}, nil
	}
}

func toObjectState[T any](s State[T]) ObjectState[T] {
	out := ObjectState[T]{Loading: s.Loading, Error: s.Error, RequestID: s.RequestID, Err: s.Err, Stale: s.Stale}
	if len(s.Data) > 0 {
		v := s.Data[0]
		out.Data = &v
	}
	return out
}
