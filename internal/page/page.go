// Package page assembles the view models of the ERP screens. Each page
// fetches through the domain clients, decorates records with status badges
// and derived metrics, and exposes the page's actions through the resource
// dispatcher so that a successful action returns the refreshed page.
package page

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/cost"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/customer"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/engineering"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/presale"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/purchase"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/scheduler"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/shortage"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/erp/stageview"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/optimistic"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/validation"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// A screen that filters locally loads its whole collection, page by page,
// up to maxFetchPages pages.
const (
	fetchPageSize = 500
	maxFetchPages = 20
)

// Clients bundles the domain clients of every backend service.
type Clients struct {
	Shortage    *shortage.Client
	Purchase    *purchase.Client
	Cost        *cost.Client
	Presale     *presale.Client
	Scheduler   *scheduler.Client
	Engineering *engineering.Client
	Stages      *stageview.Client
	Customers   *customer.Client
}

// NewClients builds every domain client on the same invoker.
func NewClients(inv model.OperationInvoker) Clients {
	return Clients{
		Shortage:    shortage.New(inv),
		Purchase:    purchase.New(inv),
		Cost:        cost.New(inv),
		Presale:     presale.New(inv),
		Scheduler:   scheduler.New(inv),
		Engineering: engineering.New(inv),
		Stages:      stageview.New(inv),
		Customers:   customer.New(inv),
	}
}

// AllRoutes returns the route table of every domain client.
func AllRoutes() []model.Route {
	var out []model.Route
	for _, rs := range [][]model.Route{
		shortage.Routes(),
		purchase.Routes(),
		cost.Routes(),
		presale.Routes(),
		scheduler.Routes(),
		engineering.Routes(),
		stageview.Routes(),
		customer.Routes(),
	} {
		out = append(out, rs...)
	}
	return out
}

// Deps carries the collaborators of a Service. Only Clients is required.
type Deps struct {
	Clients    Clients
	Status     *statusreg.Registry
	Validator  *validation.Validator
	Dispatcher *resource.Dispatcher
	Scope      *resource.Scope
	Fanout     *resource.Fanout
	Optimistic *optimistic.Tracker
	Options    resource.Options
	Now        func() time.Time
}

// Service assembles every page.
type Service struct {
	c          Clients
	status     *statusreg.Registry
	validator  *validation.Validator
	dispatcher *resource.Dispatcher
	scope      *resource.Scope
	fanout     *resource.Fanout
	optimistic *optimistic.Tracker
	opts       resource.Options
	now        func() time.Time
}

// New creates a Service, filling unset collaborators with in-memory
// defaults.
func New(d Deps) *Service {
	if d.Options.Logger == nil {
		d.Options.Logger = zap.NewNop()
	}
	if d.Status == nil {
		d.Status = statusreg.NewRegistry(nil)
	}
	if d.Validator == nil {
		d.Validator = validation.New()
	}
	if d.Dispatcher == nil {
		d.Dispatcher = resource.NewDispatcher(d.Options)
	}
	if d.Scope == nil {
		d.Scope = resource.NewScope(0)
	}
	if d.Fanout == nil {
		d.Fanout = resource.NewFanout(0, d.Options)
	}
	if d.Optimistic == nil {
		d.Optimistic = optimistic.NewTracker(optimistic.NewMemoryStore(), 0,
			optimistic.Options{Logger: d.Options.Logger, Metrics: d.Options.Metrics})
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		c:          d.Clients,
		status:     d.Status,
		validator:  d.Validator,
		dispatcher: d.Dispatcher,
		scope:      d.Scope,
		fanout:     d.Fanout,
		optimistic: d.Optimistic,
		opts:       d.Options,
		now:        d.Now,
	}
}

// Forget drops the loaders kept for a session.
func (s *Service) Forget(sessionID string) {
	if sessionID != "" {
		s.scope.Forget(sessionID + ":")
	}
}

// LoadState is the loading status shared by every page. Total is the
// backend's record count; Truncated is set when fewer records were loaded.
type LoadState struct {
	Loading   bool   `json:"loading"`
	Error     string `json:"error,omitempty"`
	RequestID uint64 `json:"request_id"`
	Total     int    `json:"total"`
	Truncated bool   `json:"truncated,omitempty"`
}

func stateOf[T any](st resource.State[T]) LoadState {
	total := max(st.Meta.Total, len(st.Data))
	return LoadState{
		Loading:   st.Loading,
		Error:     st.Error,
		RequestID: st.RequestID,
		Total:     total,
		Truncated: total > len(st.Data),
	}
}

func objectStateOf[T any](st resource.ObjectState[T]) LoadState {
	ls := LoadState{Loading: st.Loading, Error: st.Error, RequestID: st.RequestID}
	if st.Data != nil {
		ls.Total = 1
	}
	return ls
}

// fetchAll adapts a paged list call into a fetch of the whole collection.
// It stops at the backend total, at a short page, or after maxFetchPages;
// the returned Meta keeps the backend total so a cut-off stays visible.
func fetchAll[T any](list func(ctx context.Context, p model.ListParams) ([]T, envelope.Meta, error)) resource.FetchFunc[T] {
	return func(ctx context.Context) ([]T, envelope.Meta, error) {
		var all []T
		total := 0
		for page := 1; page <= maxFetchPages; page++ {
			items, meta, err := list(ctx, model.ListParams{Page: page, PageSize: fetchPageSize})
			if err != nil {
				return nil, envelope.Meta{}, err
			}
			all = append(all, items...)
			total = max(total, meta.Total)
			if len(items) < fetchPageSize || len(all) >= total {
				break
			}
		}
		return all, envelope.Meta{Page: 1, PageSize: len(all), Total: max(total, len(all))}, nil
	}
}

// warnTruncated logs a download that could not include every record.
func (s *Service) warnTruncated(ctx context.Context, name string, loaded int, meta envelope.Meta) {
	if meta.Total > loaded {
		observability.RequestLogger(ctx, s.opts.Logger).Warn("export truncated",
			zap.String("resource", name),
			zap.Int("loaded", loaded),
			zap.Int("total", meta.Total),
		)
	}
}

// fatal returns the load error when it must abort the request instead of
// being rendered on the page. Only an expired login does.
func fatal(err error) error {
	if err != nil && model.IsCode(err, model.ErrUnauthorized) {
		return err
	}
	return nil
}

func (s *Service) scopeKey(ctx context.Context, name string) string {
	if rctx := model.RequestContextFrom(ctx); rctx != nil && rctx.SessionID != "" {
		return rctx.SessionID + ":" + name
	}
	return ""
}

// load runs fetch through the session's loader for the named page, so a
// newer load of the same page supersedes an older one.
func load[T any](ctx context.Context, s *Service, name string, fetch resource.FetchFunc[T]) resource.State[T] {
	key := s.scopeKey(ctx, name)
	if key == "" {
		return resource.NewLoader(name, fetch, s.opts).Load(ctx)
	}
	return resource.ScopedLoader(s.scope, key, name, fetch, s.opts).LoadWith(ctx, fetch)
}

// loadOne is load for a single record.
func loadOne[T any](ctx context.Context, s *Service, name string, fetch func(ctx context.Context) (T, error)) (*T, resource.ObjectState[T]) {
	key := s.scopeKey(ctx, name)
	if key == "" {
		st := resource.NewObjectLoader(name, fetch, s.opts).Load(ctx)
		return st.Data, st
	}
	st := resource.ScopedObjectLoader(s.scope, key, name, fetch, s.opts).LoadWith(ctx, fetch)
	return st.Data, st
}

// last returns the data of the most recent load of a page in this session.
func last[T any](ctx context.Context, s *Service, name string) []T {
	key := s.scopeKey(ctx, name)
	if key == "" {
		return nil
	}
	return resource.ScopedLoader[T](s.scope, key, name, nil, s.opts).State().Data
}

// run dispatches a validated action. key defaults the in-flight guard key
// when the client did not send one.
func run[P any](ctx context.Context, s *Service, name, key string, req resource.Request[P], do func(context.Context, P) error, reload resource.ReloadFunc) (model.ActionOutcome, error) {
	if req.Key == "" {
		req.Key = key
	}
	action := resource.Action[P]{
		Name:     name,
		Validate: validation.For[P](s.validator),
		Do:       do,
	}
	return resource.Dispatch(ctx, s.dispatcher, action, req, reload)
}

func actionKey(entity string, id any, action string) string {
	return fmt.Sprintf("%s:%v:%s", entity, id, action)
}

func countBy[T any, K comparable](items []T, key func(T) K) map[K]int {
	out := make(map[K]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}
