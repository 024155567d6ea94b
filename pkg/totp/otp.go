package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	DefaultDigits    = 6      // Standard 6-digit TOTP codes
	DefaultPeriod    = 30     // 30-second time step (RFC 6238 standard)
	DefaultAlgorithm = "SHA1" // HMAC-SHA1 algorithm (RFC 6238 standard)

	// SecretSize is the number of random bytes in a generated secret (160 bits).
	SecretSize = 20
	// MinSecretSize is the shortest decoded secret accepted (RFC 4226 requires 128 bits).
	MinSecretSize = 16

	// Skew is the number of steps accepted on each side of the current one.
	Skew = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a new random Base32-encoded secret without padding.
func GenerateSecret() (string, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return b32.EncodeToString(secret), nil
}

// DecodeSecret normalizes and decodes a Base32 secret.
// Lowercase input, spaces and trailing padding are tolerated.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	secret = strings.TrimRight(secret, "=")
	if secret == "" {
		return nil, ErrMissingSecret
	}
	key, err := b32.DecodeString(secret)
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	if len(key) < MinSecretSize {
		return nil, fmt.Errorf("%w: decoded length %d is below %d bytes", ErrInvalidSecret, len(key), MinSecretSize)
	}
	return key, nil
}

// StepAt returns the time step counter containing t.
func StepAt(t time.Time) int64 {
	return t.Unix() / DefaultPeriod
}

// Generate derives the zero-padded 6-digit code for the given time step.
func Generate(secret string, step int64) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return GenerateHOTP(key, step)
}

// GenerateAt derives the code for the step containing t.
func GenerateAt(secret string, t time.Time) (string, error) {
	return Generate(secret, StepAt(t))
}

// Verify reports whether code is valid for now, accepting one step of clock skew each side.
// A code that is not exactly six digits is reported as invalid without an error;
// ErrInvalidSecret is returned only for a malformed secret.
func Verify(secret, code string, now time.Time) (bool, error) {
	_, ok, err := Match(secret, code, now)
	return ok, err
}

// Match is Verify that also returns the step the code matched.
// Every candidate step is compared so timing does not reveal which one matched.
func Match(secret, code string, now time.Time) (int64, bool, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return 0, false, err
	}

	code = strings.TrimSpace(code)
	if !isNumeric(code, DefaultDigits) {
		return 0, false, nil
	}

	current := StepAt(now)
	var matched int64
	found := 0
	for i := -Skew; i <= Skew; i++ {
		step := current + int64(i)
		candidate, err := GenerateHOTP(key, step)
		if err != nil {
			return 0, false, err
		}
		eq := subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
		if eq == 1 && found == 0 {
			matched = step
		}
		found |= eq
	}

	return matched, found == 1, nil
}

var hotpOpts = hotp.ValidateOpts{
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateHOTP derives the RFC 4226 code of key for counter.
func GenerateHOTP(key []byte, counter int64) (string, error) {
	if counter < 0 {
		return "", fmt.Errorf("%w: %d is negative", ErrInvalidCounter, counter)
	}
	return hotp.GenerateCodeCustom(b32.EncodeToString(key), uint64(counter), hotpOpts)
}

func isNumeric(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
