package backupcode

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultCount is the number of codes in a batch.
	DefaultCount = 10

	// Each code is two groups of five symbols from a 32-symbol alphabet: 50 bits.
	groupLen = 5
	codeLen  = 2 * groupLen
	alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// newCode returns a random code formatted as XXXXX-XXXXX.
func newCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(codeLen + 1)
	for i, b := range buf {
		if i == groupLen {
			sb.WriteByte('-')
		}
		// 256 is a multiple of 32, so the low five bits are uniform.
		sb.WriteByte(alphabet[b&0x1f])
	}
	return sb.String(), nil
}

// Normalize canonicalizes user input: case, separators and the usual
// look-alike substitutions are forgiven. ok is false when the result cannot
// be a valid code.
func Normalize(code string) (string, bool) {
	var sb strings.Builder
	sb.Grow(codeLen)
	for _, r := range strings.ToUpper(code) {
		switch r {
		case '-', ' ', '\t':
			continue
		case 'O':
			r = '0'
		case 'I', 'L':
			r = '1'
		}
		if !strings.ContainsRune(alphabet, r) {
			return "", false
		}
		sb.WriteRune(r)
	}
	if sb.Len() != codeLen {
		return "", false
	}
	return sb.String(), true
}

// hash binds a normalized code to its owner under the server pepper.
func hash(pepper []byte, userID uuid.UUID, normalized string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(userID.String()))
	mac.Write([]byte{':'})
	mac.Write([]byte(normalized))
	return mac.Sum(nil)
}
