package model

import (
	"context"
	"io"
	"strconv"
)

// Route identifies one backend operation: which service, which HTTP method,
// and which path template. OperationID matches the backend OpenAPI spec.
type Route struct {
	ServiceID   string `json:"service_id"`
	OperationID string `json:"operation_id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
}

// OperationInvoker is the unified interface for backend invocation.
type OperationInvoker interface {
	// Invoke calls the backend operation described by the route with the given
	// input and decodes a JSON response body.
	Invoke(ctx context.Context, rctx *RequestContext, route Route, input InvocationInput) (InvocationResult, error)

	// Stream calls the backend operation and hands back the raw response body
	// for non-JSON payloads. The caller must close Body.
	Stream(ctx context.Context, rctx *RequestContext, route Route, input InvocationInput) (RawResult, error)

	// Supports returns true if this invoker serves the given request.
	Supports(rctx *RequestContext, route Route) bool
}

// InvocationInput is the constructed backend request.
type InvocationInput struct {
	PathParams  map[string]string `json:"path_params,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        any               `json:"body,omitempty"`
}

// InvocationResult is the backend response.
type InvocationResult struct {
	StatusCode int               `json:"status_code"`
	Body       any               `json:"body,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// RawResult is an undecoded backend response.
type RawResult struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// ListParams describes pagination and filter parameters for list endpoints.
type ListParams struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// Query converts the params into backend query parameters.
func (p ListParams) Query() map[string]string {
	q := make(map[string]string, len(p.Filters)+2)
	for k, v := range p.Filters {
		if v != "" {
			q[k] = v
		}
	}
	if p.Page > 0 {
		q["page"] = strconv.Itoa(p.Page)
	}
	if p.PageSize > 0 {
		q["page_size"] = strconv.Itoa(p.PageSize)
	}
	return q
}
