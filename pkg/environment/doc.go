// Package environment parses APP_ENV into a small closed set of deployment
// names used to pick the log format and the email transport.
package environment
