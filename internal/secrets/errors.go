package secrets

import "errors"

var (
	// ErrInvalidAppKey is returned when the application key is not 32 bytes
	ErrInvalidAppKey = errors.New("app key must be 32 bytes")

	// ErrKeyDerivationFailed is returned when HKDF key derivation fails
	ErrKeyDerivationFailed = errors.New("key derivation failed")

	// ErrEncryptionFailed is returned when encryption fails
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed is returned when decryption fails
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidCiphertext is returned when the ciphertext is malformed
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)
