package token

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Expiring is implemented by payloads that carry an expiry.
// A zero time means the token does not expire.
type Expiring interface {
	ExpiresAt() time.Time
}

// ParseToken verifies the signature and decodes the payload.
// Payloads implementing Expiring are rejected with ErrExpired once past their expiry.
func ParseToken[T any](token string, key []byte) (T, error) {
	return ParseTokenAt[T](token, key, time.Now())
}

// ParseTokenAt is ParseToken with an explicit clock.
func ParseTokenAt[T any](token string, key []byte, now time.Time) (T, error) {
	var payload T
	if len(key) < MinKeySize {
		return payload, ErrInvalidKey
	}

	payloadEnc, sigEnc, ok := strings.Cut(token, ".")
	if !ok || payloadEnc == "" || sigEnc == "" || strings.Contains(sigEnc, ".") {
		return payload, ErrInvalidToken
	}

	data, err := base64.RawURLEncoding.DecodeString(payloadEnc)
	if err != nil {
		return payload, errors.Join(ErrInvalidToken, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigEnc)
	if err != nil {
		return payload, errors.Join(ErrInvalidToken, err)
	}

	if !hmac.Equal(sig, sign(data, key)) {
		return payload, ErrSignatureInvalid
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, errors.Join(ErrInvalidToken, err)
	}

	if exp, ok := any(payload).(Expiring); ok {
		if at := exp.ExpiresAt(); !at.IsZero() && !now.Before(at) {
			return payload, ErrExpired
		}
	}

	return payload, nil
}
