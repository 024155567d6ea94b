// Package signature decides which second-factor verification a document
// signature needs and issues single-use signing authorizations.
//
// The policy table maps each security level to the challenge methods that
// satisfy it:
//
//	basico         primary credential only
//	intermediario  totp, backup_code
//	alto           totp, backup_code, answered within Freshness
//	critico        qr_scan, backup_code, answered within Freshness
//
// Gate opens the challenge a level needs. Finalize accepts only a succeeded
// challenge of the same user and document, answered with a method the level
// allows, and issues at most one Authorization per challenge. The
// authorization is an HMAC-signed token (pkg/token) bound to challenge,
// document, signer, level and method; Redeem verifies it once and returns
// the Record the signing collaborator persists.
//
// Single use is enforced through Claims: RedisClaims (SET NX) when several
// replicas run, MemoryClaims otherwise.
package signature
