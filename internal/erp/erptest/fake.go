// Package erptest provides a scripted OperationInvoker for tests of the ERP
// clients and the pages built on them.
package erptest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Call is one recorded invocation.
type Call struct {
	Route model.Route
	Input model.InvocationInput
	Demo  bool
}

// Response is the scripted reply to an operation.
type Response struct {
	Body any
	Text string
	Err  error
}

// Invoker answers operations from a script keyed by operation ID and records
// every call. Unscripted operations return an empty object.
type Invoker struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []Call
}

// New creates an empty Invoker.
func New() *Invoker {
	return &Invoker{responses: make(map[string][]Response)}
}

// On queues responses for an operation. The last one repeats.
func (f *Invoker) On(operationID string, rs ...Response) *Invoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[operationID] = append(f.responses[operationID], rs...)
	return f
}

// Reply queues a JSON body for an operation.
func (f *Invoker) Reply(operationID string, body any) *Invoker {
	return f.On(operationID, Response{Body: body})
}

// Fail queues an error for an operation.
func (f *Invoker) Fail(operationID string, err error) *Invoker {
	return f.On(operationID, Response{Err: err})
}

func (f *Invoker) next(route model.Route, rctx *model.RequestContext, input model.InvocationInput) Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Route: route, Input: input, Demo: rctx != nil && rctx.DemoMode})
	queue := f.responses[route.OperationID]
	if len(queue) == 0 {
		return Response{Body: map[string]any{}}
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[route.OperationID] = queue[1:]
	}
	return r
}

func (f *Invoker) Invoke(_ context.Context, rctx *model.RequestContext, route model.Route, input model.InvocationInput) (model.InvocationResult, error) {
	r := f.next(route, rctx, input)
	if r.Err != nil {
		return model.InvocationResult{}, r.Err
	}
	return model.InvocationResult{StatusCode: 200, Body: r.Body}, nil
}

func (f *Invoker) Stream(_ context.Context, rctx *model.RequestContext, route model.Route, input model.InvocationInput) (model.RawResult, error) {
	r := f.next(route, rctx, input)
	if r.Err != nil {
		return model.RawResult{}, r.Err
	}
	return model.RawResult{
		StatusCode:  200,
		ContentType: "text/plain; version=0.0.4",
		Body:        io.NopCloser(strings.NewReader(r.Text)),
	}, nil
}

func (f *Invoker) Supports(*model.RequestContext, model.Route) bool { return true }

// Calls returns the recorded calls.
func (f *Invoker) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how often an operation was called.
func (f *Invoker) Count(operationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Route.OperationID == operationID {
			n++
		}
	}
	return n
}

// Last returns the most recent call of an operation.
func (f *Invoker) Last(operationID string) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Route.OperationID == operationID {
			return f.calls[i], true
		}
	}
	return Call{}, false
}
