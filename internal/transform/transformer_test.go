package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsend/webhook-engine/internal/logger"
	"github.com/flowsend/webhook-engine/internal/store/schema"
)

func transformWebhook(t *testing.T, template string) *schema.Webhook {
	t.Helper()
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))
	return &schema.Webhook{ID: "wh-1", TransformEnabled: true, Template: []byte(template)}
}

func payloadFrom(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestApplyPassthrough(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))
	payload := payloadFrom(t, `{"event": "order.paid"}`)

	t.Run("transformation disabled", func(t *testing.T) {
		webhook := &schema.Webhook{ID: "wh-1", TransformEnabled: false, Template: []byte(`{"x": 1}`)}
		assert.Equal(t, payload, NewTransformer().Apply(context.Background(), webhook, payload))
	})

	t.Run("empty template", func(t *testing.T) {
		webhook := &schema.Webhook{ID: "wh-1", TransformEnabled: true}
		assert.Equal(t, payload, NewTransformer().Apply(context.Background(), webhook, payload))
	})
}

func TestApplySubstitution(t *testing.T) {
	payload := payloadFrom(t, `{
		"event": "order.paid",
		"data": {"id": "abc", "amount": 42.5, "paid": true, "tags": ["a", "b"]}
	}`)

	t.Run("string substitution", func(t *testing.T) {
		webhook := transformWebhook(t, `{"id": "{{data.id}}"}`)
		result := NewTransformer().Apply(context.Background(), webhook, payload)
		assert.Equal(t, map[string]interface{}{"id": "abc"}, result)
	})

	t.Run("exact placeholder preserves primitive leaf type", func(t *testing.T) {
		webhook := transformWebhook(t, `{"amount": "{{data.amount}}", "paid": "{{data.paid}}"}`)
		result := NewTransformer().Apply(context.Background(), webhook, payload)
		assert.Equal(t, 42.5, result["amount"])
		assert.Equal(t, true, result["paid"])
	})

	t.Run("exact placeholder stringifies objects and arrays", func(t *testing.T) {
		webhook := transformWebhook(t, `{"tags": "{{data.tags}}", "meta": "{{data}}"}`)
		result := NewTransformer().Apply(context.Background(), webhook, payload)
		assert.Equal(t, `["a","b"]`, result["tags"])
		assert.IsType(t, "", result["meta"])
		assert.JSONEq(t, `{"id": "abc", "amount": 42.5, "paid": true, "tags": ["a", "b"]}`, result["meta"].(string))
	})

	t.Run("interpolation stringifies", func(t *testing.T) {
		webhook := transformWebhook(t, `{"summary": "order {{data.id}} for {{data.amount}}"}`)
		result := NewTransformer().Apply(context.Background(), webhook, payload)
		assert.Equal(t, "order abc for 42.5", result["summary"])
	})

	t.Run("absent path yields empty string", func(t *testing.T) {
		webhook := transformWebhook(t, `{"id": "{{data.missing}}", "note": "ref={{data.nope}}"}`)
		result := NewTransformer().Apply(context.Background(), webhook, payload)
		assert.Equal(t, "", result["id"])
		assert.Equal(t, "ref=", result["note"])
	})

	t.Run("nested structure keeps its shape", func(t *testing.T) {
		webhook := transformWebhook(t, `{"order": {"id": "{{data.id}}", "flags": ["{{data.paid}}", "static"]}}`)
		result := NewTransformer().Apply(context.Background(), webhook, payload)
		order, ok := result["order"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "abc", order["id"])
		assert.Equal(t, []interface{}{true, "static"}, order["flags"])
	})
}

func TestApplyFallsBackToOriginal(t *testing.T) {
	payload := payloadFrom(t, `{"event": "order.paid"}`)

	t.Run("malformed template", func(t *testing.T) {
		webhook := transformWebhook(t, `{"broken": `)
		assert.Equal(t, payload, NewTransformer().Apply(context.Background(), webhook, payload))
	})

	t.Run("template that is not an object", func(t *testing.T) {
		webhook := transformWebhook(t, `"just a string"`)
		assert.Equal(t, payload, NewTransformer().Apply(context.Background(), webhook, payload))
	})
}
