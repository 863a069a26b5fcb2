package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/textproto"
)

// Reserved delivery headers. Custom webhook headers can never override these.
const (
	HeaderDelivery       = "X-Webhook-Delivery"
	HeaderTimestamp      = "X-Webhook-Timestamp"
	HeaderSecret         = "X-Webhook-Secret"
	HeaderSecretPrevious = "X-Webhook-Secret-Previous"
	HeaderSignature      = "X-Webhook-Signature"
	HeaderContentType    = "Content-Type"
	HeaderUserAgent      = "User-Agent"
)

// Sign computes the signature header value for an outbound payload.
// The HMAC-SHA256 is taken over the exact bytes sent on the wire, so
// receivers verify against the raw request body before any parsing.
// Format: "sha256=<hex_signature>"
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a signature header value against a payload using
// a constant-time comparison
func VerifySignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

// reservedHeader reports whether a header name collides with a reserved
// delivery header, case-insensitively per HTTP header semantics
func reservedHeader(name string) bool {
	switch textproto.CanonicalMIMEHeaderKey(name) {
	case HeaderDelivery, HeaderTimestamp, HeaderSecret, HeaderSecretPrevious,
		HeaderSignature, HeaderContentType, HeaderUserAgent:
		return true
	}
	return false
}
