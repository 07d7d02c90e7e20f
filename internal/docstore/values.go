// Package docstore – document database client
//
// This package implements a thin client for the company document database,
// which speaks the Firestore REST dialect. Documents carry their fields as a
// map of typed value wrappers ({"stringValue": ...}, {"booleanValue": ...},
// and so on), so this file provides helpers to build and read those wrappers
// without callers having to know the wire shape.
//
// Only the value kinds the notification engine actually stores are supported:
// strings, booleans, integers, and arrays of strings.
package docstore

import (
	"encoding/json"
	"strconv"
)

// Value is one typed field of a document in the wire format of the store.
// Exactly one member is set.
type Value struct {
	StringValue  *string     `json:"stringValue,omitempty"`
	BooleanValue *bool       `json:"booleanValue,omitempty"`
	IntegerValue *string     `json:"integerValue,omitempty"`
	ArrayValue   *ArrayValue `json:"arrayValue,omitempty"`
}

// ArrayValue wraps an ordered list of values.
type ArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

// String builds a string field.
func String(s string) Value { return Value{StringValue: &s} }

// Bool builds a boolean field.
func Bool(b bool) Value { return Value{BooleanValue: &b} }

// Int builds an integer field. The wire format carries integers as
// decimal strings.
func Int(n int64) Value {
	s := strconv.FormatInt(n, 10)
	return Value{IntegerValue: &s}
}

// Strings builds an array field from a list of strings.
func Strings(items []string) Value {
	vals := make([]Value, 0, len(items))
	for _, it := range items {
		vals = append(vals, String(it))
	}
	return Value{ArrayValue: &ArrayValue{Values: vals}}
}

// AsString reads a string field, or "" when the field holds another kind.
func (v Value) AsString() string {
	if v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}

// AsBool reads a boolean field. Stores sometimes persist booleans as the
// strings "true"/"false", so those are accepted too.
func (v Value) AsBool() (bool, bool) {
	if v.BooleanValue != nil {
		return *v.BooleanValue, true
	}
	if v.StringValue != nil {
		if b, err := strconv.ParseBool(*v.StringValue); err == nil {
			return b, true
		}
	}
	return false, false
}

// AsInt reads an integer field, accepting both the native integer wrapper
// and numeric strings.
func (v Value) AsInt() (int64, bool) {
	if v.IntegerValue != nil {
		if n, err := strconv.ParseInt(*v.IntegerValue, 10, 64); err == nil {
			return n, true
		}
	}
	if v.StringValue != nil {
		if n, err := strconv.ParseInt(*v.StringValue, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// AsStrings reads an array field as a string slice. Non-string members are
// skipped.
func (v Value) AsStrings() []string {
	if v.ArrayValue == nil {
		return nil
	}
	out := make([]string, 0, len(v.ArrayValue.Values))
	for _, item := range v.ArrayValue.Values {
		if item.StringValue != nil {
			out = append(out, *item.StringValue)
		}
	}
	return out
}

// Fields is the field map of one document.
type Fields map[string]Value

// GetString returns the named string field or def when absent.
func (f Fields) GetString(key, def string) string {
	if v, ok := f[key]; ok {
		if s := v.AsString(); s != "" {
			return s
		}
	}
	return def
}

// GetBool returns the named boolean field or def when absent or malformed.
func (f Fields) GetBool(key string, def bool) bool {
	if v, ok := f[key]; ok {
		if b, ok := v.AsBool(); ok {
			return b
		}
	}
	return def
}

// GetInt returns the named integer field or def when absent or malformed.
func (f Fields) GetInt(key string, def int64) int64 {
	if v, ok := f[key]; ok {
		if n, ok := v.AsInt(); ok {
			return n
		}
	}
	return def
}

// GetStrings returns the named array field, or nil when absent.
func (f Fields) GetStrings(key string) []string {
	if v, ok := f[key]; ok {
		return v.AsStrings()
	}
	return nil
}

// Document is one stored document. Name is the full resource path assigned
// by the store; ID() extracts the trailing document identifier.
type Document struct {
	Name       string `json:"name,omitempty"`
	Fields     Fields `json:"fields,omitempty"`
	CreateTime string `json:"createTime,omitempty"`
	UpdateTime string `json:"updateTime,omitempty"`
}

// ID returns the document identifier, the last path segment of Name.
func (d Document) ID() string {
	for i := len(d.Name) - 1; i >= 0; i-- {
		if d.Name[i] == '/' {
			return d.Name[i+1:]
		}
	}
	return d.Name
}

// MarshalJSON keeps empty field maps as {} rather than null so patch
// requests stay well formed.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(f))
}
