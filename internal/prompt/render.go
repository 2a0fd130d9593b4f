package prompt

import (
	"encoding/json"
	"strconv"
	"strings"
)

// scope is one level of the lookup chain. Loop bodies push a scope for the
// current element; lookups fall back to enclosing scopes.
type scope struct {
	value  any
	index  int
	inLoop bool
	parent *scope
}

type renderer struct {
	name string
	out  *strings.Builder
}

func (r *renderer) render(nodes []node, s *scope) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			r.out.WriteString(n.text)
		case fieldNode:
			v, ok := lookup(s, n.path)
			if !ok || v == nil {
				return &FieldError{Template: r.name, Field: n.path}
			}
			r.out.WriteString(format(v))
		case ifNode:
			v, _ := lookup(s, n.path)
			branch := n.then
			if truthy(v) == n.negate {
				branch = n.orElse
			}
			if err := r.render(branch, s); err != nil {
				return err
			}
		case eachNode:
			v, ok := lookup(s, n.path)
			if !ok {
				return &FieldError{Template: r.name, Field: n.path}
			}
			list, isList := v.([]any)
			if !isList && v != nil {
				return &ListError{Template: r.name, Field: n.path}
			}
			for i, el := range list {
				if err := r.render(n.body, &scope{value: el, index: i, inLoop: true, parent: s}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func lookup(s *scope, path string) (any, bool) {
	switch path {
	case "this", ".":
		return s.value, true
	case "@index", "@number":
		for cur := s; cur != nil; cur = cur.parent {
			if cur.inLoop {
				if path == "@index" {
					return float64(cur.index), true
				}
				return float64(cur.index + 1), true
			}
		}
		return nil, false
	}

	path = strings.TrimPrefix(path, "this.")
	parts := strings.Split(path, ".")
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := walk(cur.value, parts); ok {
			return v, true
		}
	}
	return nil, false
}

func walk(v any, parts []string) (any, bool) {
	for _, p := range parts {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = format(el)
		}
		return strings.Join(parts, ", ")
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}
