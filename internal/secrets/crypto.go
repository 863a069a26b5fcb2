package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required application key size, 256 bits for AES-256
	KeySize = 32

	// secretBytes is the entropy of a generated signing secret
	secretBytes = 32

	// secretPrefix marks generated secrets so they are recognizable in
	// user-facing surfaces without revealing anything
	secretPrefix = "whsec_"

	// derivationInfo provides domain separation for HKDF key derivation
	derivationInfo = "webhook-engine-secrets-v1"
)

// ValidateAppKey checks that the application key is the correct length
func ValidateAppKey(appKey []byte) error {
	if len(appKey) != KeySize {
		return ErrInvalidAppKey
	}
	return nil
}

// DecodeAppKey decodes a base64-encoded application key from configuration
func DecodeAppKey(encoded string) ([]byte, error) {
	appKey, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidAppKey, err)
	}
	if err := ValidateAppKey(appKey); err != nil {
		return nil, err
	}
	return appKey, nil
}

// deriveKey creates a per-webhook encryption key from the application key
// using HKDF-SHA256 with the webhook ID as salt. Compromise of one webhook's
// derived key does not expose another's ciphertext.
func deriveKey(appKey []byte, webhookID string) ([]byte, error) {
	hkdfReader := hkdf.New(sha256.New, appKey, []byte(webhookID), []byte(derivationInfo))

	derivedKey := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdfReader, derivedKey); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	return derivedKey, nil
}

// clearBytes zeros out a byte slice to shorten the lifetime of key material
// in memory
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateSecret creates a new random signing secret in plaintext form
func GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return secretPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// Encrypt encrypts a plaintext secret for storage under the webhook's derived
// key. Returns base64-encoded nonce + ciphertext + tag.
func Encrypt(appKey []byte, webhookID, plaintext string) (string, error) {
	if err := ValidateAppKey(appKey); err != nil {
		return "", err
	}

	key, err := deriveKey(appKey, webhookID)
	if err != nil {
		return "", err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	// Prepend nonce to ciphertext for storage
	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a stored secret back to plaintext
func Decrypt(appKey []byte, webhookID, encoded string) (string, error) {
	if err := ValidateAppKey(appKey); err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	key, err := deriveKey(appKey, webhookID)
	if err != nil {
		return "", err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// Last4 returns the non-secret fingerprint of a plaintext secret
func Last4(plaintext string) string {
	if len(plaintext) < 4 {
		return plaintext
	}
	return plaintext[len(plaintext)-4:]
}
