// Package erp holds the call helpers shared by the per-domain ERP API
// clients in its subpackages. Every client declares its backend operations
// as a route table so startup can check them against the backend contracts.
package erp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/envelope"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Route builds a route for a service operation.
func Route(serviceID, operationID, method, path string) model.Route {
	return model.Route{ServiceID: serviceID, OperationID: operationID, Method: method, Path: path}
}

// ID formats a numeric path parameter.
func ID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Path returns path parameters from alternating name, value pairs.
func Path(kv ...string) map[string]string {
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func invoke(ctx context.Context, inv model.OperationInvoker, route model.Route, input model.InvocationInput) (model.InvocationResult, error) {
	rctx := model.RequestContextFrom(ctx)
	res, err := inv.Invoke(ctx, rctx, route, input)
	if err != nil {
		return model.InvocationResult{}, fmt.Errorf("%s/%s: %w", route.ServiceID, route.OperationID, err)
	}
	return res, nil
}

// List calls a list operation and decodes the collection through the shared
// envelope decoder. The returned slice is never nil.
func List[T any](ctx context.Context, inv model.OperationInvoker, route model.Route, input model.InvocationInput) ([]T, envelope.Meta, error) {
	res, err := invoke(ctx, inv, route, input)
	if err != nil {
		return []T{}, envelope.Meta{}, err
	}
	items, meta, err := envelope.DecodeInto[T](res.Body)
	if err != nil {
		return []T{}, envelope.Meta{}, fmt.Errorf("%s/%s: %w", route.ServiceID, route.OperationID, err)
	}
	return items, meta, nil
}

// Object calls a detail operation and decodes a single record.
func Object[T any](ctx context.Context, inv model.OperationInvoker, route model.Route, input model.InvocationInput) (T, error) {
	var zero T
	res, err := invoke(ctx, inv, route, input)
	if err != nil {
		return zero, err
	}
	v, err := envelope.DecodeObject[T](res.Body)
	if err != nil {
		return zero, fmt.Errorf("%s/%s: %w", route.ServiceID, route.OperationID, err)
	}
	return v, nil
}

// Do calls a mutating operation and discards the response body.
func Do(ctx context.Context, inv model.OperationInvoker, route model.Route, input model.InvocationInput) error {
	_, err := invoke(ctx, inv, route, input)
	return err
}

// Stream calls an operation that returns a non-JSON body. The caller must
// close the body.
func Stream(ctx context.Context, inv model.OperationInvoker, route model.Route, input model.InvocationInput) (model.RawResult, error) {
	rctx := model.RequestContextFrom(ctx)
	raw, err := inv.Stream(ctx, rctx, route, input)
	if err != nil {
		return model.RawResult{}, fmt.Errorf("%s/%s: %w", route.ServiceID, route.OperationID, err)
	}
	return raw, nil
}
