package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/mediahub/internal/query"
)

// table maps API field names onto SQL columns. Array columns match a value
// when any element equals it.
type table struct {
	columns map[string]string
	arrays  map[string]bool
}

func (t table) column(f query.Field) string {
	if c, ok := t.columns[f.Name]; ok {
		return c
	}
	return f.Name
}

// where renders base predicates plus the resolved conditions. Placeholders
// are numbered from 1.
func (t table) where(base []string, conds []query.ResolvedCondition) (string, []any) {
	preds := append([]string(nil), base...)
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, c := range conds {
		col := t.column(c.Field)
		array := t.arrays[c.Field.Name]

		switch c.Op {
		case query.OpIn:
			vals := typedSlice(c.Values, c.Field.Type)
			if array {
				preds = append(preds, fmt.Sprintf("%s && %s", col, next(vals)))
			} else {
				preds = append(preds, fmt.Sprintf("%s = ANY(%s)", col, next(vals)))
			}
		case query.OpEq:
			if array {
				preds = append(preds, fmt.Sprintf("%s = ANY(%s)", next(c.Value), col))
			} else {
				preds = append(preds, fmt.Sprintf("%s = %s", col, next(c.Value)))
			}
		case query.OpGte:
			preds = append(preds, fmt.Sprintf("%s >= %s", col, next(c.Value)))
		case query.OpGt:
			preds = append(preds, fmt.Sprintf("%s > %s", col, next(c.Value)))
		case query.OpLte:
			preds = append(preds, fmt.Sprintf("%s <= %s", col, next(c.Value)))
		case query.OpLt:
			preds = append(preds, fmt.Sprintf("%s < %s", col, next(c.Value)))
		}
	}

	if len(preds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

// orderBy always ends on id for stable pages.
func (t table) orderBy(keys []query.ResolvedSort) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, t.column(k.Field)+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// page appends LIMIT/OFFSET placeholders after the existing args.
func page(args []any, r query.Resolved) (string, []any) {
	n := len(args)
	if r.Limit <= 0 {
		return fmt.Sprintf(" OFFSET $%d", n+1), append(args, r.Skip)
	}
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), append(args, r.Limit, r.Skip)
}

// typedSlice gives pgx a concrete element type for array parameters.
func typedSlice(vals []any, t query.FieldType) any {
	switch t {
	case query.Number:
		out := make([]float64, 0, len(vals))
		for _, v := range vals {
			f, _ := v.(float64)
			out = append(out, f)
		}
		return out
	case query.Int:
		out := make([]int64, 0, len(vals))
		for _, v := range vals {
			i, _ := v.(int64)
			out = append(out, i)
		}
		return out
	case query.Bool:
		out := make([]bool, 0, len(vals))
		for _, v := range vals {
			b, _ := v.(bool)
			out = append(out, b)
		}
		return out
	case query.Time:
		out := make([]time.Time, 0, len(vals))
		for _, v := range vals {
			ts, _ := v.(time.Time)
			out = append(out, ts)
		}
		return out
	default:
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			s, _ := v.(string)
			out = append(out, s)
		}
		return out
	}
}
