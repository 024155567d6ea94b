// Package requestid attaches a correlation id to every HTTP request.
//
// Middleware accepts a client-supplied X-Request-ID when it is at most 128
// characters of [a-zA-Z0-9_-]; otherwise it generates a UUIDv7. The id is
// echoed in the response header, stored in the context, and picked up by the
// logger (LoggerExtractor) and the audit log (FromContextOK).
package requestid
