// Package query turns list-endpoint query parameters into a storage-neutral
// specification: filters, sort keys, a projection and a page window.
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/geocoder89/mediahub/internal/apperr"
)

type Operator string

const (
	OpEq  Operator = "eq"
	OpGte Operator = "gte"
	OpGt  Operator = "gt"
	OpLte Operator = "lte"
	OpLt  Operator = "lt"
	OpIn  Operator = "in"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultSort  = "-createdAt"
)

var reserved = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

// DefaultMultiValue lists the fields whose repeated parameters are kept as a
// set instead of collapsing to the last value.
var DefaultMultiValue = []string{"duration", "rating", "price"}

var bracketKey = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]+)\]$`)

type Condition struct {
	Field  string
	Op     Operator
	Value  string
	Values []string
}

type SortKey struct {
	Field string
	Desc  bool
}

// Projection is either an inclusion list or, when Exclude is set, an
// exclusion list. An empty Fields slice means the default projection.
type Projection struct {
	Fields  []string
	Exclude bool
}

type Spec struct {
	Conditions []Condition
	Sort       []SortKey
	Projection Projection
	Page       int
	Limit      int
}

func (s Spec) Skip() int {
	return (s.Page - 1) * s.Limit
}

// CacheKey is a stable textual form of the spec, suitable as a cache key.
func (s Spec) CacheKey() string {
	var b strings.Builder
	for _, c := range s.Conditions {
		if c.Op == OpIn {
			fmt.Fprintf(&b, "%s:in:%s;", c.Field, strings.Join(c.Values, ","))
			continue
		}
		fmt.Fprintf(&b, "%s:%s:%s;", c.Field, c.Op, c.Value)
	}
	b.WriteString("|")
	for _, k := range s.Sort {
		if k.Desc {
			b.WriteString("-")
		}
		b.WriteString(k.Field)
		b.WriteString(",")
	}
	b.WriteString("|")
	if s.Projection.Exclude {
		b.WriteString("!")
	}
	b.WriteString(strings.Join(s.Projection.Fields, ","))
	fmt.Fprintf(&b, "|%d|%d", s.Page, s.Limit)
	return b.String()
}

type Builder struct {
	values url.Values
	multi  map[string]bool
	spec   Spec
	err    error
}

type Option func(*Builder)

// WithMultiValue replaces the set of fields whose repeated values become an
// "in" condition.
func WithMultiValue(fields ...string) Option {
	return func(b *Builder) {
		b.multi = make(map[string]bool, len(fields))
		for _, f := range fields {
			b.multi[f] = true
		}
	}
}

func New(values url.Values, opts ...Option) *Builder {
	b := &Builder{
		values: values,
		spec:   Spec{Page: DefaultPage, Limit: DefaultLimit},
	}
	WithMultiValue(DefaultMultiValue...)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Filter() *Builder {
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, key := range keys {
		vals := b.values[key]
		if len(vals) == 0 {
			continue
		}

		field, op := key, OpEq
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			switch Operator(m[2]) {
			case OpGte, OpGt, OpLte, OpLt:
				field, op = m[1], Operator(m[2])
			}
		}

		if op == OpEq && len(vals) > 1 && b.multi[field] {
			conds = append(conds, Condition{Field: field, Op: OpIn, Values: append([]string(nil), vals...)})
			continue
		}

		conds = append(conds, Condition{Field: field, Op: op, Value: vals[len(vals)-1]})
	}

	b.spec.Conditions = conds
	return b
}

func (b *Builder) Sort() *Builder {
	raw := b.values.Get("sort")
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSort
	}

	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		part = strings.TrimPrefix(part, "-")
		if part == "" {
			continue
		}
		keys = append(keys, SortKey{Field: part, Desc: desc})
	}

	b.spec.Sort = keys
	return b
}

func (b *Builder) LimitFields() *Builder {
	raw := b.values.Get("fields")

	var include, exclude []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			exclude = append(exclude, strings.TrimPrefix(part, "-"))
			continue
		}
		include = append(include, part)
	}

	switch {
	case len(include) > 0 && len(exclude) > 0:
		b.fail(apperr.Validation("invalid_fields", "fields cannot mix inclusion and exclusion"))
	case len(exclude) > 0:
		b.spec.Projection = Projection{Fields: exclude, Exclude: true}
	default:
		b.spec.Projection = Projection{Fields: include}
	}
	return b
}

func (b *Builder) Paginate() *Builder {
	b.spec.Page = positiveInt(b.values.Get("page"), DefaultPage)
	b.spec.Limit = positiveInt(b.values.Get("limit"), DefaultLimit)
	if b.spec.Limit > MaxLimit {
		b.spec.Limit = MaxLimit
	}
	return b
}

// Spec returns the accumulated specification or the first error a step hit.
func (b *Builder) Spec() (Spec, error) {
	if b.err != nil {
		return Spec{}, b.err
	}
	return b.spec, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}
