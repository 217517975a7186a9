package filter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/catalogqa/internal/domain"
)

// MaxDepth bounds the nesting of decoded filters.
const MaxDepth = 8

// Decode parses the wire form of a filter:
//
//	{"field": "value"}                  equality
//	{"field": {"in": ["a", "b"]}}       membership
//	{"or": [<filter>, ...]}             disjunction ("$or" is accepted too)
//
// JSON null decodes to a nil Filter. Any other shape is rejected with domain.ErrInvalidFilter.
func Decode(data []byte) (Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return FromValue(raw)
}

// FromValue converts an already-decoded JSON value into a Filter.
func FromValue(raw any) (Filter, error) {
	if raw == nil {
		return nil, nil
	}
	return fromValue(raw, 0)
}

func fromValue(raw any, depth int) (Filter, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", domain.ErrInvalidFilter, MaxDepth)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", domain.ErrInvalidFilter, raw)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one key, got %d", domain.ErrInvalidFilter, len(obj))
	}

	for key, val := range obj {
		if key == "or" || key == "$or" {
			items, ok := val.([]any)
			if !ok || len(items) == 0 {
				return nil, fmt.Errorf("%w: %q must be a non-empty array", domain.ErrInvalidFilter, key)
			}
			subs := make([]Filter, 0, len(items))
			for i, item := range items {
				sub, err := fromValue(item, depth+1)
				if err != nil {
					return nil, fmt.Errorf("or[%d]: %w", i, err)
				}
				subs = append(subs, sub)
			}
			return Or{Filters: subs}, nil
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty field name", domain.ErrInvalidFilter)
		}
		return leafFromValue(key, val)
	}
	return nil, fmt.Errorf("%w: empty object", domain.ErrInvalidFilter)
}

func leafFromValue(field string, val any) (Filter, error) {
	if m, ok := val.(map[string]any); ok {
		inVal, ok := m["in"]
		if !ok {
			inVal, ok = m["$in"]
		}
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("%w: field %q: only {\"in\": [...]} is supported", domain.ErrInvalidFilter, field)
		}
		items, ok := inVal.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q: \"in\" must be an array", domain.ErrInvalidFilter, field)
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			s, err := scalarFromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			values = append(values, s)
		}
		return In{Field: field, Values: values}, nil
	}

	s, err := scalarFromJSON(val)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return Equals{Field: field, Value: s}, nil
}

func scalarFromJSON(v any) (any, error) {
	switch s := v.(type) {
	case string, bool, float64:
		return s, nil
	case int:
		return float64(s), nil
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: unsupported value %T", domain.ErrInvalidFilter, v)
}

// ToValue converts f into its wire form, ready for JSON or YAML encoding.
func ToValue(f Filter) any {
	switch v := deref(f).(type) {
	case nil:
		return nil
	case Equals:
		return map[string]any{v.Field: v.Value}
	case In:
		return map[string]any{v.Field: map[string]any{"in": v.Values}}
	case Or:
		subs := make([]any, len(v.Filters))
		for i, sub := range v.Filters {
			subs[i] = ToValue(sub)
		}
		return map[string]any{"or": subs}
	default:
		return nil
	}
}

// Encode returns the JSON wire form of f.
func Encode(f Filter) ([]byte, error) {
	data, err := json.Marshal(ToValue(f))
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return data, nil
}
