// Package invoker implements backend invocation over HTTP with circuit
// breaker and retry support, and routes each call to the HTTP or demo
// invoker depending on the caller's session.
package invoker

import (
	"context"
	"fmt"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Registry holds OperationInvoker implementations and dispatches each call
// to the first one that supports it. Register the demo invoker before the
// HTTP invoker so demo sessions never reach a real backend.
type Registry struct {
	invokers []model.OperationInvoker
}

// NewRegistry creates a registry over the given invokers, in priority order.
func NewRegistry(invokers ...model.OperationInvoker) *Registry {
	return &Registry{invokers: invokers}
}

// Register appends an invoker with the lowest priority.
func (r *Registry) Register(invoker model.OperationInvoker) {
	r.invokers = append(r.invokers, invoker)
}

// Len returns the number of registered invokers.
func (r *Registry) Len() int {
	return len(r.invokers)
}

// Supports reports whether any registered invoker serves the call.
func (r *Registry) Supports(rctx *model.RequestContext, route model.Route) bool {
	return r.pick(rctx, route) != nil
}

// Invoke delegates to the first invoker that supports the call.
func (r *Registry) Invoke(ctx context.Context, rctx *model.RequestContext, route model.Route, input model.InvocationInput) (model.InvocationResult, error) {
	inv := r.pick(rctx, route)
	if inv == nil {
		return model.InvocationResult{}, unsupported(rctx, route)
	}
	return inv.Invoke(ctx, rctx, route, input)
}

// Stream delegates to the first invoker that supports the call.
func (r *Registry) Stream(ctx context.Context, rctx *model.RequestContext, route model.Route, input model.InvocationInput) (model.RawResult, error) {
	inv := r.pick(rctx, route)
	if inv == nil {
		return model.RawResult{}, unsupported(rctx, route)
	}
	return inv.Stream(ctx, rctx, route, input)
}

func (r *Registry) pick(rctx *model.RequestContext, route model.Route) model.OperationInvoker {
	for _, inv := range r.invokers {
		if inv.Supports(rctx, route) {
			return inv
		}
	}
	return nil
}

func unsupported(rctx *model.RequestContext, route model.Route) error {
	demo := rctx != nil && rctx.DemoMode
	return fmt.Errorf("invoker: no invoker supports %s/%s (demo=%t)", route.ServiceID, route.OperationID, demo)
}
