// Package totp implements RFC 6238 time-based one-time passwords on top of the
// RFC 4226 HOTP algorithm.
//
// The package is pure: it performs no I/O and keeps no state. Callers persist
// secrets (encrypted, see pkg/secrets) and the last accepted step themselves.
//
// # Usage
//
//	secret, _ := totp.GenerateSecret()
//
//	uri, _ := totp.ProvisioningURI(totp.Params{
//	    Secret:      secret,
//	    AccountName: "alice@example.com",
//	    Issuer:      "Cepalab Juridico",
//	})
//
//	step, ok, err := totp.Match(secret, "123456", time.Now())
//
// Verification accepts the current 30-second step and one step on either
// side. Match returns the step that matched so callers can reject a code that
// was already accepted once.
//
// # Error Handling
//
// ErrInvalidSecret is returned for secrets that are not Base32 or decode to
// fewer than 128 bits. A code with the wrong shape is simply reported as not
// matching.
package totp
