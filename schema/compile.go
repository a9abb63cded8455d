package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/PuerkitoBio/goquery"
)

var ErrInvalidSchema = errors.New("invalid schema")

// Compile turns a schema literal into a Node. Accepted shapes are a Node,
// a selector string, []Field, map[string]any (fields in key order), a
// one-element []any or []string, a Func or func value and an Extractor.
func Compile(v any) (Node, error) {
	switch t := v.(type) {
	case Node:
		return t, nil
	case string:
		return Scalar(t), nil
	case []Field:
		return Object(t), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			n, err := Compile(t[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj = append(obj, Field{Key: k, Node: n})
		}
		return obj, nil
	case []string:
		if len(t) != 1 {
			return nil, fmt.Errorf("%w: array must hold exactly one element, got %d", ErrInvalidSchema, len(t))
		}
		return ScalarArray(t[0]), nil
	case []any:
		if len(t) != 1 {
			return nil, fmt.Errorf("%w: array must hold exactly one element, got %d", ErrInvalidSchema, len(t))
		}
		elem, err := Compile(t[0])
		if err != nil {
			return nil, err
		}
		return arrayOf(elem)
	case func(context.Context, *goquery.Selection) (any, error):
		return Escape{Func(t)}, nil
	case Extractor:
		return Escape{t}, nil
	}
	return nil, fmt.Errorf("%w: unsupported literal %T", ErrInvalidSchema, v)
}

// MustCompile is like Compile but panics on an invalid literal.
func MustCompile(v any) Node {
	n, err := Compile(v)
	if err != nil {
		panic(err)
	}
	return n
}

func arrayOf(elem Node) (Node, error) {
	switch e := elem.(type) {
	case Scalar:
		return ScalarArray(e), nil
	case Object, Escape:
		return ObjectArray{Elem: e}, nil
	}
	return nil, fmt.Errorf("%w: array element must be a selector or an object, got %T", ErrInvalidSchema, elem)
}

// ParseJSON reads a schema written as JSON. Object keys keep the order in
// which they appear in the document.
func ParseJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	n, err := parseNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after schema", ErrInvalidSchema)
	}
	return n, nil
}

func parseNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	switch t := tok.(type) {
	case string:
		return Scalar(t), nil
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
	}
	return nil, fmt.Errorf("%w: unexpected %v", ErrInvalidSchema, tok)
}

func parseObject(dec *json.Decoder) (Node, error) {
	obj := Object{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		key := tok.(string)
		n, err := parseNode(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		if i, ok := index[key]; ok {
			obj[i].Node = n
			continue
		}
		index[key] = len(obj)
		obj = append(obj, Field{Key: key, Node: n})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Node, error) {
	var elems []Node
	for dec.More() {
		n, err := parseNode(dec)
		if err != nil {
			return nil, err
		}
		elems = append(elems, n)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if len(elems) != 1 {
		return nil, fmt.Errorf("%w: array must hold exactly one element, got %d", ErrInvalidSchema, len(elems))
	}
	return arrayOf(elems[0])
}
