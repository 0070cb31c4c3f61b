// Package template provides templating functionality for dynamic node configuration.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/windlass-io/windlass/pkg/models"
)

// RenderWithContext renders input against the accumulated state of one
// execution. Node outputs are exposed under .node_results keyed by node id,
// so concurrent branches read and write disjoint namespaces.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	results := make(map[string]any, len(executionCtx.NodeResults))
	for id, result := range executionCtx.NodeResults {
		results[id] = result.Data
	}

	data := map[string]any{
		"node_results": results,
		"variables":    executionCtx.Variables,
		"vars":         executionCtx.Variables,
		"trigger_data": executionCtx.TriggerData,
		"metadata":     executionCtx.Metadata,
		"execution": map[string]any{
			"id":          executionCtx.ID,
			"workflow_id": executionCtx.WorkflowID,
		},
	}

	return Render(input, data)
}

// Render executes templateStr against data. An unresolved reference is an
// error, never a silent empty string. Results that look like JSON, numbers,
// or booleans are coerced into their typed form.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("config").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				if _, err := rand.Read(num); err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// text/template prints missing map keys as "<no value>" instead of
	// failing; treat that as the unresolved-reference error it is.
	if strings.Contains(result, "<no value>") {
		return nil, fmt.Errorf("template '%s' references an unresolved value", templateStr)
	}

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// RenderConfig deep-renders every string leaf of a node configuration map.
// Nested maps and slices are walked; non-string values pass through untouched.
func RenderConfig(config map[string]any, executionCtx *models.ExecutionContext) (map[string]any, error) {
	rendered, err := renderValue(config, executionCtx)
	if err != nil {
		return nil, err
	}

	out, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rendered configuration is not a map: %T", rendered)
	}

	return out, nil
}

func renderValue(value any, executionCtx *models.ExecutionContext) (any, error) {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v, nil
		}

		return RenderWithContext(v, executionCtx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := renderValue(val, executionCtx)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			rendered, err := renderValue(val, executionCtx)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}
