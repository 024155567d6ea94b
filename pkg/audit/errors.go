package audit

import "errors"

var (
	// ErrStorageNotAvailable indicates the storage backend is unavailable
	ErrStorageNotAvailable = errors.New("storage backend is unavailable")

	// ErrEventValidation indicates event validation failed
	ErrEventValidation = errors.New("event validation failed")

	// ErrFailedToStoreEvents wraps storage write failures
	ErrFailedToStoreEvents = errors.New("failed to store audit events")

	// ErrFailedToQueryEvents wraps storage read failures
	ErrFailedToQueryEvents = errors.New("failed to query audit events")
)
