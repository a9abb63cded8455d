package selector

import (
	"errors"
	"strconv"
	"strings"
)

// Builtin returns the stock filters: trim, number, lower, upper,
// replace:old,new, split:sep and default:value.
func Builtin() Filters {
	return Filters{
		"trim":    stringFilter(strings.TrimSpace),
		"lower":   stringFilter(strings.ToLower),
		"upper":   stringFilter(strings.ToUpper),
		"number":  number,
		"replace": replace,
		"split":   split,
		"default": orDefault,
	}
}

func stringFilter(fn func(string) string) Filter {
	return func(_ FilterContext, value any, _ ...string) (any, error) {
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		return fn(s), nil
	}
}

// number parses value as a float, ignoring thousands separators. Text that
// is not a number resolves to nil.
func number(_ FilterContext, value any, _ ...string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, nil
	}
	return f, nil
}

func replace(_ FilterContext, value any, args ...string) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("replace takes two arguments")
	}
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	return strings.ReplaceAll(s, args[0], args[1]), nil
}

func split(_ FilterContext, value any, args ...string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	sep := " "
	if len(args) > 0 {
		sep = args[0]
	}
	var out []any
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

func orDefault(_ FilterContext, value any, args ...string) (any, error) {
	if s, ok := value.(string); (ok && s == "") || value == nil {
		if len(args) > 0 {
			return args[0], nil
		}
	}
	return value, nil
}
