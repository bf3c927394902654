// Package resolve implements the resolution scope used to substitute
// symbolic `${name}` placeholders in stage configuration with concrete
// values from the current scope.
package resolve

import "regexp"

var placeholderRe = regexp.MustCompile(`\$\{([^${}]*)\}`)

// Env holds the variable bindings in effect for a flow or a single stage.
// Values may be strings, lists or maps; nested values resolve recursively.
type Env struct {
	values map[string]any
}

// NewEnv creates a scope seeded with the given bindings. The map is not
// copied; callers hand over ownership.
func NewEnv(values map[string]any) *Env {
	if values == nil {
		values = make(map[string]any)
	}
	return &Env{values: values}
}

// Clone returns an independent copy of the scope. Overlaying stage-local
// values on a clone leaves the parent scope untouched.
func (e *Env) Clone() *Env {
	values := make(map[string]any, len(e.values))
	for k, v := range e.values {
		values[k] = v
	}
	return &Env{values: values}
}

// AddValues resolves each value against the current scope and then binds it.
// Later bindings may therefore refer to earlier ones.
func (e *Env) AddValues(values map[string]any) {
	for k, v := range values {
		e.values[k] = e.Resolve(v)
	}
}

// Resolve substitutes `${name}` references in v against the scope. v may be
// a string, a []any of resolvables or a map[string]any with resolvable
// values; anything else passes through unchanged. Unknown names are left
// verbatim so that a later overlay can still supply them.
//
// A binding whose value is a list fans the containing string out into a
// list, one element per binding entry.
func (e *Env) Resolve(v any) any {
	return e.resolve(v, false)
}

// ResolveFinal behaves like Resolve but substitutes unknown names with the
// empty string. Used at the last resolution point before a value reaches an
// external tool.
func (e *Env) ResolveFinal(v any) any {
	return e.resolve(v, true)
}

// maxDepth bounds recursive binding expansion; a chain deeper than this is
// treated as a cycle and left unresolved.
const maxDepth = 16

func (e *Env) resolve(v any, final bool) any {
	return e.resolveDepth(v, final, 0)
}

func (e *Env) resolveDepth(v any, final bool, depth int) any {
	if depth > maxDepth {
		return v
	}
	switch val := v.(type) {
	case string:
		return e.resolveString(val, final, depth)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = e.resolveDepth(item, final, depth)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = e.resolveDepth(item, final, depth)
		}
		return out
	default:
		return v
	}
}

// resolveString substitutes matches right-to-left so earlier spans stay
// valid as the string is rewritten. Bound values are themselves resolved
// before substitution, so bindings may refer to other bindings regardless
// of the order they were added in.
func (e *Env) resolveString(s string, final bool, depth int) any {
	matches := placeholderRe.FindAllStringSubmatchIndex(s, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		name := s[m[2]:m[3]]
		bound, ok := e.values[name]
		if !ok || bound == nil {
			if !final {
				continue
			}
			bound = ""
		}
		switch b := e.resolveDepth(bound, final, depth+1).(type) {
		case string:
			s = s[:m[0]] + b + s[m[1]:]
		case []any:
			// Fan the string out, one copy per list element. Each copy
			// re-resolves so placeholders left of the list still bind.
			fanned := make([]any, 0, len(b))
			for _, el := range b {
				es, ok := el.(string)
				if !ok {
					continue
				}
				switch expanded := e.resolveDepth(s[:m[0]]+es+s[m[1]:], final, depth+1).(type) {
				case []any:
					fanned = append(fanned, expanded...)
				default:
					fanned = append(fanned, expanded)
				}
			}
			return fanned
		}
	}
	return s
}
