package delivery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowsend/webhook-engine/internal/delivery"
)

func TestSignKnownVector(t *testing.T) {
	// HMAC-SHA256("secret", `{"a":1}`)
	signature := delivery.Sign("secret", []byte(`{"a":1}`))
	assert.Equal(t, "sha256=aa9e2e3575f5d7098b6caccd790888c36d5fdb63342a73bada2d6a51747a8494", signature)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"order_id":"o-1"}`)
	signature := delivery.Sign("whsec_test", body)

	assert.True(t, delivery.VerifySignature("whsec_test", body, signature))
	assert.False(t, delivery.VerifySignature("whsec_other", body, signature))
	assert.False(t, delivery.VerifySignature("whsec_test", []byte(`{"order_id":"o-2"}`), signature))
	assert.False(t, delivery.VerifySignature("whsec_test", body, "sha256=deadbeef"))
}

func TestSignDiffersPerSecretAndBody(t *testing.T) {
	body := []byte(`{"x":1}`)
	assert.NotEqual(t, delivery.Sign("a", body), delivery.Sign("b", body))
	assert.NotEqual(t, delivery.Sign("a", body), delivery.Sign("a", []byte(`{"x":2}`)))
}
