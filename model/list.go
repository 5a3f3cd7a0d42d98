package model

// ListResource is the one list envelope every BFF list endpoint returns.
// Items is never nil.
type ListResource[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// NewListResource builds a ListResource, replacing a nil slice with an empty one.
func NewListResource[T any](items []T, page, pageSize, total int) ListResource[T] {
	if items == nil {
		items = []T{}
	}
	return ListResource[T]{Items: items, Page: page, PageSize: pageSize, Total: total}
}

// ActionOutcome is returned to the client after a mutating action.
type ActionOutcome struct {
	DialogOpen  bool         `json:"dialog_open"`
	Message     string       `json:"message,omitempty"`
	FieldErrors []FieldError `json:"field_errors,omitempty"`
	Data        any          `json:"data,omitempty"`
}
