package enrollment

import (
	"context"
	"time"

	"github.com/cepalab/signguard/pkg/statemachine"
)

// State is the enrollment lifecycle state of a user.
type State string

const (
	StateDisabled          State = "disabled"
	StateSecretIssued      State = "secret_issued"
	StateAwaitingFirstCode State = "awaiting_first_code"
	StateEnabled           State = "enabled"
)

// ParseState validates a persisted state value.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateDisabled, StateSecretIssued, StateAwaitingFirstCode, StateEnabled:
		return st, nil
	}
	return "", ErrUnknownState
}

// Status is the coarse projection shown to users.
type Status string

const (
	StatusDisabled            Status = "disabled"
	StatusPendingVerification Status = "pending_verification"
	StatusEnabled             Status = "enabled"
)

// Status projects the state onto the user-facing status.
func (s State) Status() Status {
	switch s {
	case StateEnabled:
		return StatusEnabled
	case StateSecretIssued, StateAwaitingFirstCode:
		return StatusPendingVerification
	default:
		return StatusDisabled
	}
}

// Event triggers an enrollment transition.
type Event string

const (
	EventIssue   Event = "issue"
	EventReissue Event = "reissue"
	EventPresent Event = "present"
	EventConfirm Event = "confirm"
	EventLockout Event = "lockout"
	EventResume  Event = "resume"
	EventDisable Event = "disable"
)

// transition is the guard input for a single step.
type transition struct {
	profile *Profile
	now     time.Time
	force   bool
}

func forced(_ context.Context, _ State, _ Event, data any) bool {
	t, ok := data.(transition)
	return ok && t.force
}

func unlocked(_ context.Context, _ State, _ Event, data any) bool {
	t, ok := data.(transition)
	return ok && !t.profile.Locked(t.now)
}

var lifecycle = statemachine.MustDefine(
	statemachine.WithTransition(StateDisabled, StateSecretIssued, EventIssue),
	statemachine.WithTransition(StateSecretIssued, StateSecretIssued, EventIssue),
	statemachine.WithTransition(StateAwaitingFirstCode, StateSecretIssued, EventIssue),
	statemachine.WithTransition(StateEnabled, StateSecretIssued, EventReissue,
		statemachine.WithGuard[State, Event](forced)),

	statemachine.WithTransition(StateSecretIssued, StateAwaitingFirstCode, EventPresent,
		statemachine.WithGuard[State, Event](unlocked)),
	statemachine.WithTransition(StateAwaitingFirstCode, StateEnabled, EventConfirm),
	statemachine.WithTransition(StateAwaitingFirstCode, StateSecretIssued, EventLockout),
	statemachine.WithTransition(StateSecretIssued, StateAwaitingFirstCode, EventResume,
		statemachine.WithGuard[State, Event](unlocked)),

	statemachine.WithTransition(StateSecretIssued, StateDisabled, EventDisable),
	statemachine.WithTransition(StateAwaitingFirstCode, StateDisabled, EventDisable),
	statemachine.WithTransition(StateEnabled, StateDisabled, EventDisable),
)
