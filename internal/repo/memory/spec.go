package memory

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/mediahub/internal/query"
)

type doc struct {
	id     string
	fields map[string]any
}

func toDoc(id string, v any) (doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return doc{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return doc{}, err
	}
	return doc{id: id, fields: m}, nil
}

// apply runs a resolved spec over items: filter, sort, then the page window.
func apply[T any](items []T, idOf func(T) string, r query.Resolved) ([]T, error) {
	type pair struct {
		item T
		doc  doc
	}

	pairs := make([]pair, 0, len(items))
	for _, it := range items {
		d, err := toDoc(idOf(it), it)
		if err != nil {
			return nil, err
		}
		if matchesAll(d, r.Conditions) {
			pairs = append(pairs, pair{item: it, doc: d})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		for _, k := range r.Sort {
			c := compare(pairs[i].doc.fields[k.Field.Name], pairs[j].doc.fields[k.Field.Name], k.Field.Type)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return pairs[i].doc.id < pairs[j].doc.id
	})

	start := r.Skip
	if start > len(pairs) {
		start = len(pairs)
	}
	end := len(pairs)
	if r.Limit > 0 && start+r.Limit < end {
		end = start + r.Limit
	}

	out := make([]T, 0, end-start)
	for _, p := range pairs[start:end] {
		out = append(out, p.item)
	}
	return out, nil
}

func matchesAll(d doc, conds []query.ResolvedCondition) bool {
	for _, c := range conds {
		if !matches(d.fields[c.Field.Name], c) {
			return false
		}
	}
	return true
}

func matches(val any, c query.ResolvedCondition) bool {
	// array fields match when any element does
	if arr, ok := val.([]any); ok {
		for _, el := range arr {
			if matches(el, c) {
				return true
			}
		}
		return false
	}

	switch c.Op {
	case query.OpIn:
		for _, v := range c.Values {
			if val != nil && compare(val, v, c.Field.Type) == 0 {
				return true
			}
		}
		return false
	case query.OpEq:
		return val != nil && compare(val, c.Value, c.Field.Type) == 0
	}

	if val == nil {
		return false
	}
	cmp := compare(val, c.Value, c.Field.Type)
	switch c.Op {
	case query.OpGte:
		return cmp >= 0
	case query.OpGt:
		return cmp > 0
	case query.OpLte:
		return cmp <= 0
	case query.OpLt:
		return cmp < 0
	}
	return false
}

// compare orders a and b as the given field type. nil sorts first.
func compare(a, b any, t query.FieldType) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch t {
	case query.Number, query.Int:
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case query.Time:
		x, y := toTime(a), toTime(b)
		return x.Compare(y)
	case query.Bool:
		x, _ := a.(bool)
		y, _ := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	default:
		x, _ := a.(string)
		y, _ := b.(string)
		return strings.Compare(x, y)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
