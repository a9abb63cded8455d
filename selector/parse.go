package selector

import (
	"regexp"
	"strings"
)

const (
	AttrText = "text"
	AttrHTML = "html"
)

// Expression is the parsed form of one selector expression:
//
//	[selector] ['@' attr] ('|' filter (':' arg (','|' ') ...)*)*
type Expression struct {
	Selector  string
	Attribute string
	Filters   []FilterCall
}

type FilterCall struct {
	Name string
	Args []string
}

var (
	attrRe = regexp.MustCompile(`^[\w\-:]+$`)
	argRe  = regexp.MustCompile(`"([^"]*)"|'([^']*)'|([^ \t,]+)`)
)

// Parse never fails. A filter segment that makes no sense still parses into
// a call; it is only rejected when the filter is looked up.
func Parse(expr string) Expression {
	segments := splitFilters(expr)
	e := Expression{Attribute: AttrText}

	head := segments[0]
	if i := strings.IndexByte(head, '@'); i >= 0 {
		attr := strings.TrimSpace(head[i+1:])
		if attrRe.MatchString(attr) {
			e.Selector = strings.TrimSpace(head[:i])
			e.Attribute = attr
		} else {
			e.Selector = strings.TrimSpace(head)
		}
	} else {
		e.Selector = strings.TrimSpace(head)
	}

	for _, seg := range segments[1:] {
		e.Filters = append(e.Filters, parseCall(seg))
	}
	return e
}

// splitFilters splits on '|' outside quotes. "|=" is the CSS attribute
// operator and stays part of the selector.
func splitFilters(expr string) []string {
	var (
		out   []string
		quote byte
		start int
	)
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '|' && (i+1 >= len(expr) || expr[i+1] != '='):
			out = append(out, strings.TrimSpace(expr[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(expr[start:]))
}

func parseCall(seg string) FilterCall {
	name, rest, _ := strings.Cut(seg, ":")
	call := FilterCall{Name: strings.TrimSpace(name)}
	for _, m := range argRe.FindAllStringSubmatchIndex(rest, -1) {
		// the first participating group is the argument
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				call.Args = append(call.Args, rest[m[2*g]:m[2*g+1]])
				break
			}
		}
	}
	return call
}
