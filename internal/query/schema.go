package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/mediahub/internal/apperr"
)

type FieldType int

const (
	String FieldType = iota
	Number
	Int
	Bool
	Time
)

// Field maps an API field name onto its storage name.
type Field struct {
	Name   string
	Column string
	Type   FieldType
	// Hidden fields are never returned and cannot be filtered or sorted on.
	Hidden bool
	// Key fields are returned by every projection.
	Key bool
	// ProjectOnly fields can be selected but not filtered or sorted on.
	ProjectOnly bool
}

type Schema struct {
	fields          map[string]Field
	order           []string
	defaultExcluded map[string]bool
}

func NewSchema(fields ...Field) Schema {
	s := Schema{
		fields:          make(map[string]Field, len(fields)),
		defaultExcluded: map[string]bool{},
	}
	for _, f := range fields {
		if f.Column == "" {
			f.Column = f.Name
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s
}

// WithDefaultExcluded names fields left out when no projection is requested.
func (s Schema) WithDefaultExcluded(names ...string) Schema {
	out := make(map[string]bool, len(s.defaultExcluded)+len(names))
	for k := range s.defaultExcluded {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	s.defaultExcluded = out
	return s
}

func (s Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	if !ok || f.Hidden {
		return Field{}, false
	}
	return f, true
}

type ResolvedCondition struct {
	Field  Field
	Op     Operator
	Value  any
	Values []any
}

type ResolvedSort struct {
	Field Field
	Desc  bool
}

// Resolved is a Spec checked against a Schema, with typed values and the
// exact list of fields to return.
type Resolved struct {
	Conditions []ResolvedCondition
	Sort       []ResolvedSort
	Fields     []Field
	Page       int
	Limit      int
	Skip       int
}

func (s Schema) Resolve(spec Spec) (Resolved, error) {
	out := Resolved{
		Page:  spec.Page,
		Limit: spec.Limit,
		Skip:  spec.Skip(),
	}

	var problems []string

	for _, c := range spec.Conditions {
		f, ok := s.Field(c.Field)
		if !ok || f.ProjectOnly {
			problems = append(problems, fmt.Sprintf("unknown filter field %q", c.Field))
			continue
		}

		rc := ResolvedCondition{Field: f, Op: c.Op}
		switch c.Op {
		case OpIn:
			for _, raw := range c.Values {
				v, err := coerce(f, raw)
				if err != nil {
					problems = append(problems, err.Error())
					continue
				}
				rc.Values = append(rc.Values, v)
			}
		case OpGte, OpGt, OpLte, OpLt:
			if f.Type != Number && f.Type != Int && f.Type != Time {
				problems = append(problems, fmt.Sprintf("operator %s is not supported on %q", c.Op, f.Name))
				continue
			}
			fallthrough
		default:
			v, err := coerce(f, c.Value)
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			rc.Value = v
		}
		out.Conditions = append(out.Conditions, rc)
	}

	for _, k := range spec.Sort {
		f, ok := s.Field(k.Field)
		if !ok || f.ProjectOnly {
			problems = append(problems, fmt.Sprintf("unknown sort field %q", k.Field))
			continue
		}
		out.Sort = append(out.Sort, ResolvedSort{Field: f, Desc: k.Desc})
	}

	fields, fieldProblems := s.project(spec.Projection)
	problems = append(problems, fieldProblems...)
	out.Fields = fields

	if len(problems) > 0 {
		return Resolved{}, apperr.ValidationDetails("invalid_query", "Invalid query parameters", problems)
	}
	return out, nil
}

func (s Schema) project(p Projection) ([]Field, []string) {
	var problems []string
	named := make(map[string]bool, len(p.Fields))
	for _, name := range p.Fields {
		if _, ok := s.Field(name); !ok {
			problems = append(problems, fmt.Sprintf("unknown field %q", name))
			continue
		}
		named[name] = true
	}

	var fields []Field
	for _, name := range s.order {
		f := s.fields[name]
		if f.Hidden {
			continue
		}

		var keep bool
		switch {
		case len(p.Fields) == 0:
			keep = !s.defaultExcluded[name]
		case p.Exclude:
			keep = !named[name]
		default:
			keep = named[name] || f.Key
		}
		if keep {
			fields = append(fields, f)
		}
	}
	return fields, problems
}

func coerce(f Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Type {
	case Number:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q must be a number", f.Name)
		}
		return v, nil
	case Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q must be an integer", f.Name)
		}
		return v, nil
	case Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q must be true or false", f.Name)
		}
		return v, nil
	case Time:
		if v, err := time.Parse(time.RFC3339, raw); err == nil {
			return v.UTC(), nil
		}
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%q must be an RFC 3339 timestamp or a date", f.Name)
		}
		return v.UTC(), nil
	default:
		return raw, nil
	}
}

// Project renders v through its JSON form and keeps only the given fields.
func Project(v any, fields []Field) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if val, ok := all[f.Name]; ok {
			out[f.Name] = val
		}
	}
	return out, nil
}

// ProjectAll applies Project to every item of a list.
func ProjectAll[T any](items []T, fields []Field) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, err := Project(it, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
