// Package audit records security-relevant events such as enrollment changes,
// verification attempts and signature authorizations.
//
// A Logger enriches each event with the user id, request id, client IP and
// user agent taken from the request context through pluggable extractors,
// scrubs metadata with a MetadataFilter, and hands the event to a Storage.
// PgStorage writes to the security_audit_log table; MemoryStorage backs tests.
//
// # Usage
//
//	log := audit.NewLogger(audit.NewPgStorage(pool),
//	    audit.WithRequestIDExtractor(requestid.FromContextOK),
//	    audit.WithIPExtractor(clientip.FromContextOK),
//	)
//
//	_ = log.Log(ctx, "challenge.attempt",
//	    audit.WithUserID(userID.String()),
//	    audit.WithResource("document", documentID),
//	    audit.WithMetadata("method", "totp"),
//	)
//
//	_ = log.LogError(ctx, "challenge.attempt", err, audit.WithResult(audit.ResultFailure))
//
// # Asynchronous writes
//
// WithAsync wraps the storage in an AsyncWriter: Log returns once the event
// is queued and a background goroutine inserts batches, retrying failed
// batches with exponential backoff before logging and dropping them. When
// the queue is full events are written synchronously. Call Close on shutdown
// to flush.
//
// # Metadata filtering
//
// By default keys that can carry verification material (code, value, secret,
// token and similar) are removed, email is hashed and phone-like fields are
// masked. WithCustomField and WithAllowedField adjust the rules.
package audit
