package schema

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Node is one element of a compiled schema. The set of implementations is
// closed: Scalar, Object, ScalarArray, ObjectArray and Escape.
type Node interface {
	schemaNode()
}

// Scalar extracts the first match of a selector expression.
type Scalar string

// ScalarArray extracts every match of a selector expression.
type ScalarArray string

// Field is a named member of an Object.
type Field struct {
	Key  string
	Node Node
}

// Object evaluates its fields concurrently into a Record, keeping the
// declared field order.
type Object []Field

// ObjectArray evaluates Elem once per node matching the enclosing scope.
type ObjectArray struct {
	Elem Node
}

// Extractor is anything that can produce a value for a subtree by itself,
// such as a nested crawl.
type Extractor interface {
	Extract(ctx context.Context, root *goquery.Selection) (any, error)
}

// Func adapts a function to an Extractor.
type Func func(ctx context.Context, root *goquery.Selection) (any, error)

func (f Func) Extract(ctx context.Context, root *goquery.Selection) (any, error) {
	return f(ctx, root)
}

// Escape hands the current subtree to an Extractor and uses its result
// unchanged.
type Escape struct {
	Extractor
}

func (Scalar) schemaNode()      {}
func (ScalarArray) schemaNode() {}
func (Object) schemaNode()      {}
func (ObjectArray) schemaNode() {}
func (Escape) schemaNode()      {}
