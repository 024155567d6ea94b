package secrets

import "errors"

var (
	// Key validation errors
	ErrInvalidMasterKey = errors.New("invalid master key: must be 32 bytes")
	ErrMissingScope     = errors.New("missing encryption scope")
	ErrMissingPurpose   = errors.New("missing key purpose")

	// Encryption/decryption errors
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// Key derivation errors
	ErrKeyDerivationFailed = errors.New("key derivation failed")
)
