// Package twofactor exposes enrollment, verification challenges and
// signature authorizations over a JSON API.
//
// Mount the module under /2fa:
//
//	mod := twofactor.New(tokens, enrollmentSvc, challengeSvc, signatureSvc,
//	    twofactor.WithActivity(auditLogger),
//	    twofactor.WithRateLimiter(bucket),
//	)
//	r.Mount("/2fa", mod.Handle())
//
// Domain errors map to statuses: invalid code 400, policy denial 403,
// unknown resource 404, already enabled 409, expired or consumed challenge
// 410, validation 422, lockout 423 with Retry-After, and too many attempts
// 429.
package twofactor
