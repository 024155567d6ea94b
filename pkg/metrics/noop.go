package metrics

import "time"

// Noop discards every event.
type Noop struct{}

func (Noop) ChallengeOpened(string)                 {}
func (Noop) ChallengeAttempt(string, string)        {}
func (Noop) ChallengesExpired(int)                  {}
func (Noop) EnrollmentEvent(string)                 {}
func (Noop) AuthorizationIssued(string)             {}
func (Noop) AuthorizationRedeemed(string)           {}
func (Noop) ObserveHTTP(string, int, time.Duration) {}
