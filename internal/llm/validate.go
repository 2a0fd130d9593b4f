package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

var violationPrinter = message.NewPrinter(language.English)

// ValidateJSON checks raw against schema and returns the content with
// schema defaults applied to absent optional properties.
// Returns *ErrInvalidResponse listing every violated constraint on failure.
func ValidateJSON(schema *Schema, raw json.RawMessage) (json.RawMessage, error) {
	if schema == nil {
		return raw, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ErrInvalidResponse{
			Content:    raw,
			Violations: []Violation{{Path: "/", Message: "malformed JSON: " + err.Error()}},
			Err:        fmt.Errorf("invalid JSON: %w", err),
		}
	}

	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return nil, &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("compile schema %q: %w", schema.Name, err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return nil, &ErrInvalidResponse{
			Content:    raw,
			Violations: violationsOf(err),
			Err:        fmt.Errorf("schema validation failed: %w", err),
		}
	}

	if !applyDefaults(schema.Definition, parsed) {
		return raw, nil
	}
	filled, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("marshal defaulted response: %w", err)
	}
	return filled, nil
}

// violationsOf flattens a jsonschema error tree into its leaf causes.
func violationsOf(err error) []Violation {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Path: "/", Message: err.Error()}}
	}
	var out []Violation
	collectViolations(ve, &out)
	return out
}

func collectViolations(ve *jsonschema.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{
			Path:    "/" + strings.Join(ve.InstanceLocation, "/"),
			Message: ve.ErrorKind.LocalizedString(violationPrinter),
		})
		return
	}
	for _, c := range ve.Causes {
		collectViolations(c, out)
	}
}

// applyDefaults walks the schema alongside the value and sets "default"
// values for absent object properties. Reports whether anything changed.
func applyDefaults(def map[string]any, v any) bool {
	changed := false
	switch val := v.(type) {
	case map[string]any:
		props, _ := def["properties"].(map[string]any)
		for name, p := range props {
			pdef, ok := p.(map[string]any)
			if !ok {
				continue
			}
			cur, present := val[name]
			if !present {
				if d, ok := pdef["default"]; ok {
					val[name] = d
					changed = true
				}
				continue
			}
			if applyDefaults(pdef, cur) {
				changed = true
			}
		}
	case []any:
		items, _ := def["items"].(map[string]any)
		if items == nil {
			return false
		}
		for _, el := range val {
			if applyDefaults(items, el) {
				changed = true
			}
		}
	}
	return changed
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not Go maps
	// with typed slices, so round-trip the definition through JSON.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}

// strictCompatible reports whether every object in the definition lists
// all of its properties as required, which OpenAI strict mode demands.
func strictCompatible(def map[string]any) bool {
	if props, ok := def["properties"].(map[string]any); ok {
		req := map[string]bool{}
		switch r := def["required"].(type) {
		case []any:
			for _, n := range r {
				if s, ok := n.(string); ok {
					req[s] = true
				}
			}
		case []string:
			for _, s := range r {
				req[s] = true
			}
		}
		for name, p := range props {
			if !req[name] {
				return false
			}
			if pdef, ok := p.(map[string]any); ok && !strictCompatible(pdef) {
				return false
			}
		}
	}
	if items, ok := def["items"].(map[string]any); ok {
		return strictCompatible(items)
	}
	return true
}
