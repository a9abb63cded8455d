package selector

import (
	"github.com/PuerkitoBio/goquery"
)

// Query is a selector expression in scalar form ("first match") or in
// array form ("all matches").
type Query struct {
	Expr string
	All  bool
}

// Resolve evaluates q against root, optionally narrowed by scope, and runs
// the expression's filters over the extracted value. For array queries the
// filters run once per element. An empty match is not an error: scalars
// resolve to nil (or "" for text) and arrays to an empty slice.
func Resolve(root *goquery.Selection, scope string, q Query, filters Filters) (any, error) {
	expr := Parse(q.Expr)
	sel := expr.Selector
	if sel == "" {
		sel, scope = scope, ""
	}

	fctx := FilterContext{Root: root, Selector: sel, Attribute: expr.Attribute}
	if !q.All {
		return expr.Apply(fctx, findFirst(root, scope, sel, expr.Attribute), filters)
	}

	values := findAll(root, scope, sel, expr.Attribute)
	for i, v := range values {
		out, err := expr.Apply(fctx, v, filters)
		if err != nil {
			return nil, err
		}
		values[i] = out
	}
	return values, nil
}

func findFirst(root *goquery.Selection, scope, sel, attr string) any {
	if scope != "" {
		return attribute(Select(root, scope).Find(sel).First(), attr)
	}
	return attribute(Select(root, sel).First(), attr)
}

func findAll(root *goquery.Selection, scope, sel, attr string) []any {
	out := []any{}
	if scope != "" {
		Select(root, scope).Each(func(_ int, s *goquery.Selection) {
			Select(s, sel).Each(func(_ int, child *goquery.Selection) {
				out = append(out, attribute(child, attr))
			})
		})
		return out
	}
	Select(root, sel).Each(func(_ int, s *goquery.Selection) {
		out = append(out, attribute(s, attr))
	})
	return out
}

// Select returns s itself when it already matches selector, otherwise its
// matching descendants. An empty selector selects s.
func Select(s *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" || s.Is(selector) {
		return s
	}
	return s.Find(selector)
}

func attribute(s *goquery.Selection, attr string) any {
	switch attr {
	case AttrHTML:
		if s.Length() == 0 {
			return nil
		}
		h, err := s.Html()
		if err != nil {
			return nil
		}
		return h
	case AttrText:
		return s.Text()
	default:
		v, ok := s.Attr(attr)
		if !ok {
			return nil
		}
		return v
	}
}
