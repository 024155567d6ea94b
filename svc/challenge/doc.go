// Package challenge implements one-shot verification challenges.
//
// A challenge binds a user to a subject (typically a document awaiting
// signature) and lists the methods that may answer it. At most one pending
// challenge exists per user and subject. A challenge ends in exactly one
// terminal outcome:
//
//	pending --correct answer--> succeeded
//	pending --MaxAttempts wrong answers--> failed
//	pending --TTL elapsed--> expired
//
// Expiry is applied lazily whenever a challenge is read or answered, and
// optionally by a periodic sweep (RunSweeper).
//
// Attempt checks, in order: ownership, terminal outcome, expiry, method
// policy, then the answer itself. Attempts with a disallowed method are
// refused without being counted. TOTP and QR scan answers go through the
// same TOTPVerifier; backup codes through BackupCodeConsumer.
//
// Before an answer is checked it reserves one of the MaxAttempts slots with
// a conditional write. Settled failures plus reserved slots never exceed
// MaxAttempts, so concurrent answers cannot test more codes than the budget
// allows. A wrong answer turns its slot into a counted failure, a correct
// one closes the challenge, and an answer that could not be evaluated gives
// its slot back. Outcomes are conditional single writes, so of two
// concurrent correct answers only one succeeds.
package challenge
