package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Sink receives the results of a crawl one page at a time. end marks the
// last write; the output is well-formed JSON only after it.
type Sink interface {
	Write(v any, end bool) error
}

type discard struct{}

func (discard) Write(any, bool) error { return nil }

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type arraySink struct {
	w     io.Writer
	first bool
}

// Array writes every page as part of one JSON array. A page that is itself
// an array contributes its elements rather than a nested array.
func Array(w io.Writer) Sink {
	if w == nil {
		return Discard
	}
	return &arraySink{w: w, first: true}
}

func (s *arraySink) Write(v any, end bool) error {
	b, err := marshal(v)
	if err != nil {
		return err
	}
	frag := string(b)
	if isArray(b) {
		frag = frag[1 : len(frag)-1]
	}
	empty := strings.TrimSpace(frag) == ""

	if s.first && empty && !end {
		return nil
	}
	var buf bytes.Buffer
	if s.first {
		buf.WriteString("[\n")
	}
	if !s.first && !empty {
		buf.WriteByte(',')
	}
	buf.WriteString(frag)
	if end {
		buf.WriteByte(']')
	}
	s.first = false
	_, err = s.w.Write(buf.Bytes())
	return err
}

type objectSink struct {
	w io.Writer
}

// Object writes a single JSON document.
func Object(w io.Writer) Sink {
	if w == nil {
		return Discard
	}
	return &objectSink{w: w}
}

func (s *objectSink) Write(v any, _ bool) error {
	b, err := marshal(v)
	if err != nil {
		return err
	}
	_, err = s.w.Write(b)
	return err
}

func marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func isArray(b []byte) bool {
	return len(b) >= 2 && b[0] == '[' && b[len(b)-1] == ']'
}
