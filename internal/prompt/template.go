// Package prompt renders prompt templates from an explicit syntax tree.
//
// Supported syntax:
//
//	{{field}}  {{a.b}}                 substitution
//	{{#if field}}...{{else}}...{{/if}}  conditional
//	{{#unless field}}...{{/unless}}     negated conditional
//	{{#each list}}...{{/each}}          iteration; {{this}}, {{@index}}, {{@number}}
//
// Data is normalized through its JSON encoding, so struct json tags name
// the fields. Rendering is pure: the same template and data always give
// the same text.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrFieldMissing is returned when a template references a field that the
// data does not carry and no conditional guards it.
var ErrFieldMissing = errors.New("template field missing")

// FieldError names the template and field that failed to resolve.
type FieldError struct {
	Template string
	Field    string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("template %q: field %q is missing", e.Template, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrFieldMissing }

// ErrNotList is returned when {{#each}} names a field that is not a list.
var ErrNotList = errors.New("template field is not a list")

// ListError names the template and field an {{#each}} could not iterate.
type ListError struct {
	Template string
	Field    string
}

func (e *ListError) Error() string {
	return fmt.Sprintf("template %q: field %q is not a list", e.Template, e.Field)
}

func (e *ListError) Unwrap() error { return ErrNotList }

// Template is a parsed prompt template. It is immutable and safe for
// concurrent use.
type Template struct {
	name  string
	nodes []node
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Must is like Parse but panics on error. For package-level templates.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Render fills the template with data.
func (t *Template) Render(data any) (string, error) {
	root, err := normalize(data)
	if err != nil {
		return "", fmt.Errorf("template %q: normalize data: %w", t.name, err)
	}

	var b strings.Builder
	r := &renderer{name: t.name, out: &b}
	if err := r.render(t.nodes, &scope{value: root}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func normalize(data any) (any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
