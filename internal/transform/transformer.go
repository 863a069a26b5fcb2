// Package transform reshapes outbound webhook bodies via a closed substitution
// template. Templates only substitute {{path}} references into the event
// payload; there is no expression language and nothing executes.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Transformer applies a webhook's template to event payloads
type Transformer struct{}

// NewTransformer creates a payload transformer
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Apply returns the outbound body for the event. Webhooks without
// transformation get the payload unchanged. A malformed template falls back to
// the original payload rather than delivering a corrupted body.
func (t *Transformer) Apply(ctx context.Context, webhook *schema.Webhook, payload map[string]interface{}) map[string]interface{} {
	if !webhook.TransformEnabled || len(webhook.Template) == 0 {
		return payload
	}

	transformed, err := t.render(webhook.Template, payload)
	if err != nil {
		logger.WarnCtx(ctx, "Template transformation failed, delivering original payload",
			zap.String("webhook_id", webhook.ID),
			zap.Error(err))
		return payload
	}

	return transformed
}

func (t *Transformer) render(template []byte, payload map[string]interface{}) (map[string]interface{}, error) {
	var root interface{}
	if err := json.Unmarshal(template, &root); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	rendered := transformValue(root, payload)

	object, ok := rendered.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("template must produce a JSON object, got %T", rendered)
	}

	return object, nil
}

// transformValue walks the decoded template recursively. Only string leaves
// are substituted; maps and arrays keep their shape.
func transformValue(node interface{}, payload map[string]interface{}) interface{} {
	switch value := node.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(value))
		for key, child := range value {
			result[key] = transformValue(child, payload)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(value))
		for i, child := range value {
			result[i] = transformValue(child, payload)
		}
		return result
	case string:
		return substitute(value, payload)
	default:
		return value
	}
}

// substitute resolves {{path}} references in a template string. A string that
// is exactly one placeholder takes the resolved value with its original type
// when primitive; objects and arrays are re-marshaled to JSON text. Anything
// else interpolates string forms. Absent paths become empty strings.
func substitute(template string, payload map[string]interface{}) interface{} {
	match := placeholderPattern.FindStringSubmatch(template)
	if match != nil && match[0] == template {
		value, present := resolvePath(payload, match[1])
		if !present {
			return ""
		}
		switch value.(type) {
		case map[string]interface{}, []interface{}:
			return stringify(value)
		}
		return value
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		path := placeholderPattern.FindStringSubmatch(placeholder)[1]
		value, present := resolvePath(payload, path)
		if !present {
			return ""
		}
		return stringify(value)
	})
}

func resolvePath(payload map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	var current interface{} = payload
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		case []interface{}:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

func stringify(value interface{}) string {
	switch node := value.(type) {
	case nil:
		return ""
	case string:
		return node
	case float64:
		return strconv.FormatFloat(node, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(node)
	default:
		encoded, err := json.Marshal(node)
		if err != nil {
			return fmt.Sprintf("%v", node)
		}
		return string(encoded)
	}
}
