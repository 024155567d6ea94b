// Package secrets protects second-factor material at rest and in transit to
// the user.
//
// A Keyring holds a single 32-byte master key. Every other key the service
// needs is derived from it with HKDF-SHA-256: purpose keys (backup-code
// pepper, token signing) through Derive, and per-scope encryption keys used by
// Seal and Open. Sealed values are AES-256-GCM with the nonce prepended, and
// the scope (typically the user id) bound as additional authenticated data so
// a ciphertext copied to another user's row fails to open.
//
// OneTime wraps plaintext that must be shown to the user exactly once, such as
// a freshly issued TOTP secret or a batch of backup codes. It redacts itself
// in fmt, JSON and slog output.
//
// # Usage
//
//	kr, _ := secrets.ParseKeyring(os.Getenv("SIGNGUARD_MASTER_KEY"))
//
//	ct, _ := kr.SealString(userID, secret)
//	plain, _ := kr.OpenString(userID, ct)
//
//	pepper, _ := kr.Derive("backup-codes")
//
// # Error Handling
//
// Errors wrap package sentinels such as ErrInvalidMasterKey or
// ErrDecryptionFailed; match them with errors.Is.
package secrets
