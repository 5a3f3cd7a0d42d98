// Package listview filters, sorts and pages collections that were already
// fetched, without another backend round trip. No function mutates its
// input slice.
package listview

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Default and maximum page sizes.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Filter returns the items for which keep is true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Keyword returns a predicate matching items where any of the given string
// fields contains kw, case-insensitively. An empty keyword matches all.
func Keyword[T any](kw string, fields ...func(T) string) func(T) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	return func(it T) bool {
		if kw == "" {
			return true
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(it)), kw) {
				return true
			}
		}
		return false
	}
}

// Category returns a predicate matching items whose category equals want.
// An empty want matches all.
func Category[T any](want string, field func(T) string) func(T) bool {
	return func(it T) bool {
		return want == "" || field(it) == want
	}
}

// Range returns a predicate matching items whose value lies in [lo, hi].
// A nil bound is open.
func Range[T any](lo, hi *float64, value func(T) float64) func(T) bool {
	return func(it T) bool {
		v := value(it)
		if lo != nil && v < *lo {
			return false
		}
		if hi != nil && v > *hi {
			return false
		}
		return true
	}
}

// All combines predicates with logical AND.
func All[T any](preds ...func(T) bool) func(T) bool {
	return func(it T) bool {
		for _, p := range preds {
			if !p(it) {
				return false
			}
		}
		return true
	}
}

// SortBy returns a stably sorted copy of items.
func SortBy[T any](items []T, less func(a, b T) bool) []T {
	out := append([]T(nil), items...)
	if out == nil {
		out = []T{}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Paginate returns the requested page of items. Page is clamped to at least
// 1 and size to [1, MaxPageSize]; a page past the end is empty.
func Paginate[T any](items []T, page, size int) []T {
	page, size = clamp(page, size)
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return append([]T(nil), items[start:end]...)
}

func clamp(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Query holds the list controls parsed from a request.
type Query struct {
	Keyword  string
	Category string
	Min      *float64
	Max      *float64
	SortKey  string
	Desc     bool
	Page     int
	PageSize int
}

// ParseQuery reads keyword, status (or category), min, max, sort, order,
// page and page_size. A sort value prefixed with "-" sorts descending.
func ParseQuery(v url.Values) Query {
	q := Query{
		Keyword:  strings.TrimSpace(v.Get("keyword")),
		Category: v.Get("status"),
		SortKey:  v.Get("sort"),
	}
	if q.Category == "" {
		q.Category = v.Get("category")
	}
	if strings.HasPrefix(q.SortKey, "-") {
		q.SortKey = q.SortKey[1:]
		q.Desc = true
	}
	if strings.EqualFold(v.Get("order"), "desc") {
		q.Desc = true
	}
	q.Min = parseFloat(v.Get("min"))
	q.Max = parseFloat(v.Get("max"))
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.PageSize, _ = strconv.Atoi(v.Get("page_size"))
	q.Page, q.PageSize = clamp(q.Page, q.PageSize)
	return q
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Spec describes how a list type exposes itself to a Query.
type Spec[T any] struct {
	Keywords []func(T) string
	Category func(T) string
	Value    func(T) float64
	Sorts    map[string]func(a, b T) bool
}

// Result is a filtered, sorted page together with the filtered total.
type Result[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Select runs filter, then sort, and returns every match.
func Select[T any](items []T, q Query, spec Spec[T]) []T {
	preds := []func(T) bool{Keyword(q.Keyword, spec.Keywords...)}
	if spec.Category != nil {
		preds = append(preds, Category(q.Category, spec.Category))
	}
	if spec.Value != nil {
		preds = append(preds, Range(q.Min, q.Max, spec.Value))
	}
	filtered := Filter(items, All(preds...))

	if less, ok := spec.Sorts[q.SortKey]; ok {
		if q.Desc {
			asc := less
			less = func(a, b T) bool { return asc(b, a) }
		}
		filtered = SortBy(filtered, less)
	}
	return filtered
}

// Apply runs filter, then sort, then paginate.
func Apply[T any](items []T, q Query, spec Spec[T]) Result[T] {
	filtered := Select(items, q, spec)
	page, size := clamp(q.Page, q.PageSize)
	return Result[T]{
		Items:    Paginate(filtered, page, size),
		Page:     page,
		PageSize: size,
		Total:    len(filtered),
	}
}
