package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required size of the master key and every derived key.
	KeySize = 32 // 256 bits for AES-256

	// sealInfo separates encryption keys from purpose keys derived from the same master.
	sealInfo = "signguard-secrets-v1"

	purposePrefix = "signguard-purpose-v1:"
)

// Keyring derives purpose and scope keys from one master key.
type Keyring struct {
	master []byte
}

// NewKeyring copies master and returns a keyring over it.
func NewKeyring(master []byte) (*Keyring, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidMasterKey
	}
	k := make([]byte, KeySize)
	copy(k, master)
	return &Keyring{master: k}, nil
}

// ParseKeyring decodes a standard or URL-safe base64 master key.
func ParseKeyring(encoded string) (*Keyring, error) {
	encoded = strings.TrimSpace(encoded)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, errors.Join(ErrInvalidMasterKey, err)
		}
	}
	defer clearBytes(raw)
	return NewKeyring(raw)
}

// Derive returns a 32-byte key dedicated to purpose.
// The same purpose always yields the same key for a given master.
func (k *Keyring) Derive(purpose string) ([]byte, error) {
	if purpose == "" {
		return nil, ErrMissingPurpose
	}
	return k.derive(nil, []byte(purposePrefix+purpose))
}

// scopeKey derives the encryption key for scope.
// The caller is responsible for clearing the returned key.
func (k *Keyring) scopeKey(scope string) ([]byte, error) {
	return k.derive([]byte(scope), []byte(sealInfo))
}

func (k *Keyring) derive(salt, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, k.master, salt, info)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// clearBytes zeros b so key material does not outlive its use.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateKey creates a new random 32-byte key suitable for a master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateEncodedKey returns GenerateKey output as standard base64,
// the format expected by ParseKeyring.
func GenerateEncodedKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
