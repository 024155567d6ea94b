package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// SealString encrypts plaintext for scope and returns base64 ciphertext.
func (k *Keyring) SealString(scope, plaintext string) (string, error) {
	ct, err := k.Seal(scope, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// OpenString reverses SealString.
func (k *Keyring) OpenString(scope, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plain, err := k.Open(scope, raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Seal encrypts data with the key derived for scope.
// Returns ciphertext in format: nonce + encrypted data + tag
func (k *Keyring) Seal(scope string, data []byte) ([]byte, error) {
	aead, err := k.aead(scope)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return aead.Seal(nonce, nonce, data, []byte(scope)), nil
}

// Open decrypts ciphertext produced by Seal for the same scope.
func (k *Keyring) Open(scope string, ciphertext []byte) ([]byte, error) {
	aead, err := k.aead(scope)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := aead.Open(nil, nonce, body, []byte(scope))
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func (k *Keyring) aead(scope string) (cipher.AEAD, error) {
	if scope == "" {
		return nil, ErrMissingScope
	}
	key, err := k.scopeKey(scope)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
