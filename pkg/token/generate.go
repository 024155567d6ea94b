package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
)

// MinKeySize is the shortest accepted signing key.
const MinKeySize = 32

// GenerateToken JSON-encodes payload and appends a full HMAC-SHA256 signature.
func GenerateToken[T any](payload T, key []byte) (string, error) {
	if len(key) < MinKeySize {
		return "", ErrInvalidKey
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(data)
	sigEnc := base64.RawURLEncoding.EncodeToString(sign(data, key))

	return payloadEnc + "." + sigEnc, nil
}

func sign(data, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
