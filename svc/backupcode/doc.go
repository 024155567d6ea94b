// Package backupcode manages single-use recovery codes for second-factor
// authentication.
//
// A batch holds ten codes formatted XXXXX-XXXXX from a Crockford-style
// alphabet (50 random bits each). Plaintext codes are returned once, wrapped
// in secrets.OneTime; only HMAC-SHA256(pepper, user_id ":" code) is stored,
// so lookup is a single indexed comparison and a leaked table cannot be
// replayed without the server pepper.
//
// Consume is a single conditional write: of two concurrent redemptions of
// the same code exactly one succeeds, the other gets ErrNotFoundOrUsed.
// Regenerate supersedes the previous batch in the same transaction that
// inserts the new one.
package backupcode
