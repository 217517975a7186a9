package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filter is a boolean predicate over a document metadata record.
// The set of implementations is closed: Equals, In and Or.
// A nil Filter matches every record.
type Filter interface {
	isFilter()
}

// Equals matches when the metadata field holds exactly Value.
type Equals struct {
	Field string
	Value any
}

// In matches when the metadata field (scalar or list) shares at least one element with Values.
type In struct {
	Field  string
	Values []any
}

// Or matches when at least one sub-filter matches.
type Or struct {
	Filters []Filter
}

func (Equals) isFilter() {}
func (In) isFilter()     {}
func (Or) isFilter()     {}

// deref maps the pointer forms, which also satisfy Filter through the value
// receivers, onto their values. A nil pointer is a nil Filter.
func deref(f Filter) Filter {
	switch v := f.(type) {
	case *Equals:
		if v == nil {
			return nil
		}
		return *v
	case *In:
		if v == nil {
			return nil
		}
		return *v
	case *Or:
		if v == nil {
			return nil
		}
		return *v
	}
	return f
}

// NewEquals creates an equality clause.
func NewEquals(field string, value any) Equals {
	return Equals{Field: field, Value: value}
}

// NewIn creates a membership clause.
func NewIn(field string, values ...any) In {
	return In{Field: field, Values: values}
}

// NewOr creates a disjunction.
func NewOr(filters ...Filter) Or {
	return Or{Filters: filters}
}

// Match evaluates f against metadata. It has no side effects.
// Fields absent from metadata never match.
func Match(f Filter, metadata map[string]any) bool {
	switch v := deref(f).(type) {
	case nil:
		return true
	case Equals:
		got, ok := metadata[v.Field]
		if !ok || isList(got) {
			return false
		}
		return scalarEqual(got, v.Value)
	case In:
		got, ok := metadata[v.Field]
		if !ok {
			return false
		}
		for _, item := range listItems(got) {
			for _, want := range v.Values {
				if scalarEqual(item, want) {
					return true
				}
			}
		}
		return false
	case Or:
		for _, sub := range v.Filters {
			if Match(sub, metadata) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Key returns a canonical string for f, stable across calls. Nil yields "".
func Key(f Filter) string {
	var b strings.Builder
	writeKey(&b, f)
	return b.String()
}

func writeKey(b *strings.Builder, f Filter) {
	switch v := deref(f).(type) {
	case nil:
	case Equals:
		b.WriteString("eq(")
		b.WriteString(strconv.Quote(v.Field))
		b.WriteByte(',')
		b.WriteString(scalarKey(v.Value))
		b.WriteByte(')')
	case In:
		b.WriteString("in(")
		b.WriteString(strconv.Quote(v.Field))
		b.WriteString(",[")
		for i, val := range v.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(scalarKey(val))
		}
		b.WriteString("])")
	case Or:
		b.WriteString("or(")
		for i, sub := range v.Filters {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKey(b, sub)
		}
		b.WriteByte(')')
	}
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Filter) bool {
	return Key(a) == Key(b)
}

// Fields returns the sorted set of metadata fields referenced by f.
func Fields(f Filter) []string {
	seen := make(map[string]struct{})
	collectFields(f, seen)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collectFields(f Filter, seen map[string]struct{}) {
	switch v := deref(f).(type) {
	case Equals:
		seen[v.Field] = struct{}{}
	case In:
		seen[v.Field] = struct{}{}
	case Or:
		for _, sub := range v.Filters {
			collectFields(sub, seen)
		}
	}
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	}
	return false
}

func listItems(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func scalarEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func scalarKey(v any) string {
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch s := v.(type) {
	case string:
		return strconv.Quote(s)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return "null"
	}
	return fmt.Sprintf("%#v", v)
}
