// Package mfa defines the error taxonomy shared by the second-factor services
// (enrollment, backup codes, challenges, signature policy) and the retry rule
// applied to their storage calls.
//
// Every service error wraps one of the sentinels in this package. Kind maps an
// arbitrary error onto the taxonomy, returning KindInternal for anything that
// is not a domain error. Domain errors are final; RetryOnce retries only
// transient failures, and only once.
package mfa
