// Package demo serves demo sessions from embedded fixtures so the web client
// can be shown without live backends. Reads return fixture data; mutations
// succeed without effect.
package demo

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

//go:embed fixtures
var fixtureFS embed.FS

// Handler answers one operation for a demo session.
type Handler func(ctx context.Context, rctx *model.RequestContext, input model.InvocationInput) (any, error)

// Invoker implements model.OperationInvoker for demo sessions only.
type Invoker struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	texts    map[string][]byte
	logger   *zap.Logger
}

// New loads the embedded fixtures. Each fixtures/<operationID>.json becomes
// a handler for that operation; other files are served by Stream.
func New(logger *zap.Logger) (*Invoker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	inv := &Invoker{
		handlers: make(map[string]Handler),
		texts:    make(map[string][]byte),
		logger:   logger,
	}
	err := fs.WalkDir(fixtureFS, "fixtures", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fixtureFS.ReadFile(p)
		if err != nil {
			return err
		}
		name := path.Base(p)
		op := strings.TrimSuffix(name, path.Ext(name))
		if path.Ext(name) != ".json" {
			inv.texts[op] = data
			return nil
		}
		body, err := decode(data)
		if err != nil {
			return fmt.Errorf("demo: fixture %s: %w", name, err)
		}
		inv.Register(op, static(body))
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.Register("getPurchaseOrder", pick("listPurchaseOrders", "id", "id", inv))
	inv.Register("getProjectStages", pick("getStagePipeline", "project_id", "project_id", inv))
	return inv, nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func static(body any) Handler {
	return func(context.Context, *model.RequestContext, model.InvocationInput) (any, error) {
		return body, nil
	}
}

// pick answers a detail operation with the matching record of a list
// fixture.
func pick(listOp, param, field string, inv *Invoker) Handler {
	return func(ctx context.Context, rctx *model.RequestContext, input model.InvocationInput) (any, error) {
		h, ok := inv.handler(listOp)
		if !ok {
			return nil, model.NewNotFoundError("demo record not found")
		}
		body, err := h(ctx, rctx, input)
		if err != nil {
			return nil, err
		}
		want := input.PathParams[param]
		for _, rec := range flatten(body) {
			if fmt.Sprint(rec[field]) == want {
				return map[string]any{"data": rec}, nil
			}
		}
		return nil, model.NewBackendError(http.StatusNotFound, "演示数据中不存在该记录")
	}
}

func flatten(body any) []map[string]any {
	for range 3 {
		switch v := body.(type) {
		case []any:
			out := make([]map[string]any, 0, len(v))
			for _, it := range v {
				if m, ok := it.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		case map[string]any:
			if items, ok := v["items"]; ok {
				body = items
			} else {
				body = v["data"]
			}
		}
	}
	return nil
}

// Register adds a handler. It panics on a duplicate operation ID, since that
// is a wiring mistake at startup.
func (inv *Invoker) Register(operationID string, h Handler) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, exists := inv.handlers[operationID]; exists {
		panic(fmt.Sprintf("demo: handler %q already registered", operationID))
	}
	inv.handlers[operationID] = h
}

func (inv *Invoker) handler(operationID string) (Handler, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	h, ok := inv.handlers[operationID]
	return h, ok
}

// Operations returns the operation IDs with a fixture, sorted.
func (inv *Invoker) Operations() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	ops := make([]string, 0, len(inv.handlers)+len(inv.texts))
	for op := range inv.handlers {
		ops = append(ops, op)
	}
	for op := range inv.texts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Supports returns true only for demo sessions.
func (inv *Invoker) Supports(rctx *model.RequestContext, _ model.Route) bool {
	return rctx != nil && rctx.DemoMode
}

// Invoke answers reads from fixtures. Mutations are acknowledged and
// dropped; reads without a fixture return an empty list.
func (inv *Invoker) Invoke(ctx context.Context, rctx *model.RequestContext, route model.Route, input model.InvocationInput) (model.InvocationResult, error) {
	logger := observability.RequestLogger(ctx, inv.logger)
	if route.Method != http.MethodGet {
		logger.Debug("demo: mutation acknowledged without effect",
			zap.String("operation_id", route.OperationID))
		return model.InvocationResult{
			StatusCode: http.StatusOK,
			Body:       map[string]any{"success": true, "demo": true},
		}, nil
	}

	h, ok := inv.handler(route.OperationID)
	if !ok {
		logger.Debug("demo: no fixture, returning empty list",
			zap.String("operation_id", route.OperationID))
		return model.InvocationResult{StatusCode: http.StatusOK, Body: []any{}}, nil
	}
	body, err := h(ctx, rctx, input)
	if err != nil {
		return model.InvocationResult{}, err
	}
	return model.InvocationResult{StatusCode: http.StatusOK, Body: body}, nil
}

// Stream serves text fixtures such as the Prometheus export.
func (inv *Invoker) Stream(_ context.Context, _ *model.RequestContext, route model.Route, _ model.InvocationInput) (model.RawResult, error) {
	inv.mu.RLock()
	data, ok := inv.texts[route.OperationID]
	inv.mu.RUnlock()
	if !ok {
		return model.RawResult{}, model.NewBackendError(http.StatusNotFound, "演示模式不支持该导出")
	}
	return model.RawResult{
		StatusCode:  http.StatusOK,
		ContentType: "text/plain; version=0.0.4; charset=utf-8",
		Body:        io.NopCloser(bytes.NewReader(data)),
	}, nil
}
