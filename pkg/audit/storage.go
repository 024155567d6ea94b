package audit

import "context"

// Storage persists and queries audit events.
// Store must be atomic: either all events are written or none.
type Storage interface {
	Store(ctx context.Context, events ...Event) error
	// Query returns matching events, newest first.
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
}
