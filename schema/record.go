package schema

import (
	"bytes"
	"encoding/json"
	"reflect"
)

type Entry struct {
	Key   string
	Value any
}

// Record is an object result. Entries keep the order of the schema fields
// and are encoded to JSON in that order.
type Record []Entry

func (r Record) Get(key string) (any, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, e := range r {
		keys[i] = e.Key
	}
	return keys
}

// Map converts r, and any records nested in it, to plain maps.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, e := range r {
		m[e.Key] = plain(e.Value)
	}
	return m
}

func plain(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	}
	return v
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Compact drops the empty values of a sequence: nil, "", false, numeric
// zero, empty sequences and empty records.
func Compact(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if !isEmpty(v) {
			out = append(out, v)
		}
	}
	return out
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if rv.CanFloat() && rv.Float() != rv.Float() {
			return true
		}
		return rv.IsZero()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
