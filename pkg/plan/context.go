package plan

import (
	"fmt"
	"maps"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// MergeContext performs a shallow merge of plan context over global
// context. Plan keys override global keys at the top level.
func MergeContext(global, local map[string]any) map[string]any {
	merged := make(map[string]any, len(global)+len(local))
	maps.Copy(merged, global)
	maps.Copy(merged, local)
	return merged
}

// InterpolateContext renders string values in the context as templates
// against the context itself, so entries can reference each other.
// Nested maps and slices are walked; non-string values pass through.
func InterpolateContext(ctx map[string]any) error {
	for key, value := range ctx {
		rendered, err := interpolateValue(value, ctx)
		if err != nil {
			return fmt.Errorf("context key %q: %w", key, err)
		}
		ctx[key] = rendered
	}
	return nil
}

func interpolateValue(value any, data map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, data)
	case map[string]any:
		for k, nested := range v {
			rendered, err := interpolateValue(nested, data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			v[k] = rendered
		}
		return v, nil
	case []any:
		for i, nested := range v {
			rendered, err := interpolateValue(nested, data)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			v[i] = rendered
		}
		return v, nil
	default:
		return value, nil
	}
}

// Render executes text as a template (sprig functions available)
// against data. Missing keys are an error.
func Render(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("value").Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return sb.String(), nil
}

// RenderArgv renders each argv element against data.
func RenderArgv(argv []string, data map[string]any) ([]string, error) {
	rendered := make([]string, len(argv))
	for i, arg := range argv {
		r, err := Render(arg, data)
		if err != nil {
			return nil, fmt.Errorf("argv[%d]: %w", i, err)
		}
		rendered[i] = r
	}
	return rendered, nil
}

// RenderMap renders each value of a string map against data.
func RenderMap(m map[string]string, data map[string]any) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	rendered := make(map[string]string, len(m))
	for k, v := range m {
		r, err := Render(v, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		rendered[k] = r
	}
	return rendered, nil
}
