package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/wenzapen/scraper/batch"
	"github.com/wenzapen/scraper/dom"
	"github.com/wenzapen/scraper/selector"
)

// Walker evaluates schema nodes against a document. Independent branches of
// an Object or ObjectArray are evaluated concurrently; results keep the
// declared order.
type Walker struct {
	filters selector.Filters
	logger  *zap.Logger
}

func NewWalker(filters selector.Filters, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{filters: filters, logger: logger.Named("walker")}
}

// Evaluate produces the result tree of n for root. scope narrows every
// selector below it unless it is a URL or an attribute reference, which
// are not usable as extraction scopes.
func (w *Walker) Evaluate(ctx context.Context, root *goquery.Selection, scope string, n Node) (any, error) {
	return w.eval(ctx, root, Scope(scope), n)
}

// Scope returns the part of scope usable for extraction.
func Scope(scope string) string {
	if strings.Contains(scope, "@") || dom.IsURL(scope) {
		return ""
	}
	return scope
}

func (w *Walker) eval(ctx context.Context, root *goquery.Selection, scope string, n Node) (any, error) {
	switch t := n.(type) {
	case Scalar:
		return selector.Resolve(root, scope, selector.Query{Expr: string(t)}, w.filters)
	case ScalarArray:
		v, err := selector.Resolve(root, scope, selector.Query{Expr: string(t), All: true}, w.filters)
		if err != nil {
			return nil, err
		}
		return Compact(v.([]any)), nil
	case Object:
		return w.object(ctx, root, scope, t)
	case ObjectArray:
		return w.objectArray(ctx, root, scope, t)
	case Escape:
		if t.Extractor == nil {
			return nil, fmt.Errorf("%w: empty escape", ErrInvalidSchema)
		}
		return t.Extract(ctx, root)
	}
	return nil, fmt.Errorf("%w: unsupported node %T", ErrInvalidSchema, n)
}

func (w *Walker) object(ctx context.Context, root *goquery.Selection, scope string, obj Object) (any, error) {
	b := batch.New(batch.WithProgress(w.progress("object")))
	for _, f := range obj {
		f := f
		b.Push(batch.Func(func(ctx context.Context) (any, error) {
			v, err := w.eval(ctx, root, scope, f.Node)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Key, err)
			}
			return v, nil
		}))
	}
	values, err := b.End(ctx)
	if err != nil {
		return nil, err
	}

	rec := make(Record, 0, len(obj))
	for i, v := range values {
		if v == nil || v == "" {
			continue
		}
		rec = append(rec, Entry{Key: obj[i].Key, Value: v})
	}
	return rec, nil
}

func (w *Walker) objectArray(ctx context.Context, root *goquery.Selection, scope string, arr ObjectArray) (any, error) {
	if scope == "" {
		return []any{}, nil
	}
	matches := root.Find(scope)
	if matches.Length() == 0 {
		return []any{}, nil
	}

	b := batch.New(batch.WithProgress(w.progress(scope)))
	matches.Each(func(_ int, item *goquery.Selection) {
		b.Push(batch.Func(func(ctx context.Context) (any, error) {
			return w.eval(ctx, item, scope, arr.Elem)
		}))
	})
	values, err := b.End(ctx)
	if err != nil {
		return nil, err
	}
	return Compact(values), nil
}

func (w *Walker) progress(what string) func(batch.Progress) {
	return func(p batch.Progress) {
		w.logger.Debug("batch progress",
			zap.String("of", what),
			zap.Int("complete", p.Complete),
			zap.Int("total", p.Total),
			zap.Int("percent", p.Percent),
			zap.Duration("took", p.Duration),
		)
	}
}
