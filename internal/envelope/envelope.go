// Package envelope normalizes the inconsistently shaped list and object
// responses returned by the ERP backends into flat collections.
package envelope

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Meta is the pagination metadata found alongside a collection.
type Meta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Decode unwraps body into a flat list of records. Accepted shapes are
// {data:{items:[...]}}, {data:[...]}, {items:[...]}, a bare array, and nil.
// Any other shape yields an empty list. The returned slice is never nil and
// Meta.Total defaults to the number of items.
func Decode(body any) ([]map[string]any, Meta) {
	var meta Meta
	items := unwrap(body, &meta, 0)

	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	if meta.Total == 0 {
		meta.Total = len(out)
	}
	return out, meta
}

// DecodeInto decodes body like Decode and converts the items into T.
func DecodeInto[T any](body any) ([]T, Meta, error) {
	items, meta := Decode(body)
	out := make([]T, 0, len(items))
	if len(items) == 0 {
		return out, meta, nil
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return out, meta, fmt.Errorf("envelope: re-encoding items: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return []T{}, meta, fmt.Errorf("envelope: decoding items: %w", err)
	}
	return out, meta, nil
}

// DecodeObject unwraps a single record from {data:{...}} or a bare object.
func DecodeObject[T any](body any) (T, error) {
	var out T
	obj, ok := body.(map[string]any)
	if !ok {
		return out, fmt.Errorf("envelope: expected object, got %T", body)
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		obj = inner
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("envelope: re-encoding object: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("envelope: decoding object: %w", err)
	}
	return out, nil
}

// unwrap descends at most two levels of {data}/{items} wrapping.
func unwrap(body any, meta *Meta, depth int) []any {
	switch v := body.(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	case map[string]any:
		readMeta(v, meta)
		if depth >= 2 {
			return nil
		}
		if items, ok := v["items"]; ok {
			return unwrap(items, meta, depth+1)
		}
		if data, ok := v["data"]; ok {
			return unwrap(data, meta, depth+1)
		}
	}
	return nil
}

func readMeta(m map[string]any, meta *Meta) {
	if n, ok := toInt(m["page"]); ok && meta.Page == 0 {
		meta.Page = n
	}
	if n, ok := toInt(m["page_size"]); ok && meta.PageSize == 0 {
		meta.PageSize = n
	}
	if n, ok := toInt(m["total"]); ok && meta.Total == 0 {
		meta.Total = n
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
