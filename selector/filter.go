package selector

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// FilterContext is what a filter knows about where its value came from.
type FilterContext struct {
	Root      *goquery.Selection
	Selector  string
	Attribute string
}

// Filter transforms one extracted value. args are the literal arguments of
// the filter call.
type Filter func(ctx FilterContext, value any, args ...string) (any, error)

// Filters is the registry filter calls are resolved against.
type Filters map[string]Filter

// Merge returns a new registry holding f overlaid with other.
func (f Filters) Merge(other Filters) Filters {
	out := make(Filters, len(f)+len(other))
	for name, fn := range f {
		out[name] = fn
	}
	for name, fn := range other {
		out[name] = fn
	}
	return out
}

type UnresolvedFilterError struct {
	Name string
}

func (e *UnresolvedFilterError) Error() string {
	return fmt.Sprintf("invalid filter: %q", e.Name)
}

// Apply runs the filter chain of e over value, left to right.
func (e Expression) Apply(ctx FilterContext, value any, filters Filters) (any, error) {
	out := value
	for _, call := range e.Filters {
		fn, ok := filters[call.Name]
		if !ok || fn == nil {
			return nil, &UnresolvedFilterError{Name: call.Name}
		}
		v, err := fn(ctx, out, call.Args...)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", call.Name, err)
		}
		out = v
	}
	return out, nil
}
