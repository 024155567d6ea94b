// Package token provides compact signed tokens carrying a JSON payload.
//
// Token format: base64url(payload).base64url(HMAC-SHA256(payload))
//
// The payload is readable by anyone holding the token; only its integrity is
// protected. Keys shorter than 32 bytes are rejected.
//
// # Usage
//
//	type Grant struct {
//	    ChallengeID string    `json:"cid"`
//	    Exp         time.Time `json:"exp"`
//	}
//
//	func (g Grant) ExpiresAt() time.Time { return g.Exp }
//
//	tok, err := token.GenerateToken(Grant{"c1", time.Now().Add(10 * time.Minute)}, key)
//
//	g, err := token.ParseToken[Grant](tok, key)
//	// errors.Is(err, token.ErrExpired) once Exp has passed
//
// ParseToken returns ErrInvalidToken for malformed input and
// ErrSignatureInvalid for signature mismatches.
package token
