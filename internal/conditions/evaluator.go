// Package conditions decides whether an event should reach a given webhook.
// Conditions are user-authored, so evaluation never panics the delivery path;
// when a condition cannot be evaluated the configured failure policy decides
// the verdict.
package conditions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flowsend/webhook-engine/internal/domain"
	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/store"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

// Evaluator filters events against a webhook's ordered condition list
type Evaluator struct {
	store  store.Store
	policy domain.FailurePolicy
}

// NewEvaluator creates a condition evaluator. The policy decides the verdict
// when evaluation itself fails: fail_open delivers anyway, fail_closed drops.
func NewEvaluator(s store.Store, policy domain.FailurePolicy) *Evaluator {
	if !policy.Valid() {
		policy = domain.FailOpen
	}
	return &Evaluator{store: s, policy: policy}
}

// Evaluate reports whether the payload passes the webhook's conditions.
// Webhooks with conditions disabled, and webhooks with no conditions, pass
// implicitly.
func (e *Evaluator) Evaluate(ctx context.Context, webhook *schema.Webhook, payload map[string]interface{}) bool {
	if !webhook.ConditionsEnabled {
		return true
	}

	conditions, err := e.store.GetConditionsByWebhookID(ctx, webhook.ID)
	if err != nil {
		return e.applyPolicy(ctx, webhook.ID, fmt.Errorf("failed to load conditions: %w", err))
	}
	if len(conditions) == 0 {
		return true
	}

	// Pure left fold over the ordered list. Each condition's logic operator
	// joins it to the running result; there is no precedence grouping.
	result, err := e.evalCondition(conditions[0], payload)
	if err != nil {
		return e.applyPolicy(ctx, webhook.ID, err)
	}

	for _, condition := range conditions[1:] {
		value, err := e.evalCondition(condition, payload)
		if err != nil {
			return e.applyPolicy(ctx, webhook.ID, err)
		}

		switch condition.LogicOperator {
		case schema.ConditionLogicOr:
			result = result || value
		default:
			result = result && value
		}
	}

	return result
}

func (e *Evaluator) applyPolicy(ctx context.Context, webhookID string, err error) bool {
	deliver := e.policy == domain.FailOpen
	logger.WarnCtx(ctx, "Condition evaluation failed, applying failure policy",
		zap.String("webhook_id", webhookID),
		zap.String("policy", string(e.policy)),
		zap.Bool("deliver", deliver),
		zap.Error(err))
	return deliver
}

func (e *Evaluator) evalCondition(condition *schema.WebhookCondition, payload map[string]interface{}) (bool, error) {
	value, present := resolvePath(payload, condition.FieldPath)

	switch condition.Operator {
	case schema.ConditionOperatorEquals:
		return present && valuesEqual(value, condition.Value), nil
	case schema.ConditionOperatorContains:
		return present && valueContains(value, condition.Value), nil
	case schema.ConditionOperatorGreaterThan:
		return compareNumeric(value, present, condition.Value, func(a, b float64) bool { return a > b })
	case schema.ConditionOperatorLessThan:
		return compareNumeric(value, present, condition.Value, func(a, b float64) bool { return a < b })
	case schema.ConditionOperatorIsEmpty:
		return isEmpty(value, present), nil
	case schema.ConditionOperatorIsNotEmpty:
		return !isEmpty(value, present), nil
	default:
		return false, fmt.Errorf("unknown operator %q", condition.Operator)
	}
}

// resolvePath walks a dot-path through nested maps and arrays. Numeric
// segments index into arrays. A missing step yields an absent value, never an
// error.
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

// valuesEqual compares numerically when both sides parse as numbers, otherwise
// by string form, so "10" equals 10 but not "010"
func valuesEqual(value interface{}, comparison string) bool {
	if left, ok := toFloat(value); ok {
		if right, err := strconv.ParseFloat(comparison, 64); err == nil {
			return left == right
		}
	}
	return stringify(value) == comparison
}

func valueContains(value interface{}, comparison string) bool {
	switch node := value.(type) {
	case []interface{}:
		for _, element := range node {
			if stringify(element) == comparison {
				return true
			}
		}
		return false
	default:
		return strings.Contains(stringify(value), comparison)
	}
}

func compareNumeric(value interface{}, present bool, comparison string, cmp func(a, b float64) bool) (bool, error) {
	if !present {
		return false, nil
	}

	left, ok := toFloat(value)
	if !ok {
		return false, fmt.Errorf("field value %v is not numeric", value)
	}

	right, err := strconv.ParseFloat(comparison, 64)
	if err != nil {
		return false, fmt.Errorf("comparison value %q is not numeric", comparison)
	}

	return cmp(left, right), nil
}

func isEmpty(value interface{}, present bool) bool {
	if !present || value == nil {
		return true
	}
	switch node := value.(type) {
	case string:
		return node == ""
	case []interface{}:
		return len(node) == 0
	case map[string]interface{}:
		return len(node) == 0
	default:
		return false
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch node := value.(type) {
	case float64:
		return node, true
	case float32:
		return float64(node), true
	case int:
		return float64(node), true
	case int64:
		return float64(node), true
	case string:
		parsed, err := strconv.ParseFloat(node, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
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
		return fmt.Sprintf("%v", node)
	}
}
