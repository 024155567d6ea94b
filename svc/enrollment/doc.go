// Package enrollment implements the TOTP enrollment lifecycle.
//
// A user moves through four states:
//
//	disabled --issue--> secret_issued --present--> awaiting_first_code --confirm--> enabled
//
// Three invalid first codes within FailureWindow fire lockout, which returns
// the enrollment to secret_issued until the lock elapses; the lock doubles
// per lockout from BaseLockout up to MaxLockout. Restarting with Start
// replaces the pending secret without clearing a running lock. An enabled
// user re-enrolls only with force, and the active secret keeps answering
// challenges until the new one is confirmed.
//
// Secrets are sealed with a per-user key from secrets.Keyring before they
// reach the Store. Plaintext secrets, provisioning URIs, QR images and backup
// codes leave the service wrapped in secrets.OneTime.
//
// VerifyTOTP is the entry point used by verification challenges. Each
// accepted code advances the stored time step, so a code is never accepted
// twice.
//
// Profiles are saved with optimistic concurrency: a lost race surfaces as
// ErrVersionConflict and the operation is retried once from a fresh read.
package enrollment
