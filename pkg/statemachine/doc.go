// Package statemachine provides a small typed finite-state-machine.
//
// A Definition is an immutable transition table keyed by comparable state and
// event types. Because Next takes the current state as an argument, a single
// package-level Definition can drive entities whose state is persisted in a
// database: load the row, call Next, store the result. Machine wraps a
// Definition with an in-memory current state for callers that want one.
//
// # Usage
//
//	type State string
//	type Event string
//
//	var flow = statemachine.MustDefine(
//	    statemachine.WithTransition[State, Event]("draft", "in_review", "submit"),
//	    statemachine.WithTransition[State, Event]("in_review", "published", "approve",
//	        statemachine.WithGuard(isEditor)),
//	)
//
//	next, err := flow.Next(ctx, "draft", "submit", nil)
//
// # Guards and Actions
//
// Guards veto a transition based on runtime data. When several transitions
// share a from/event pair, the first whose guards all pass is taken. Actions
// run after guards and before the new state is returned; an action error
// aborts the transition.
//
// # Error Handling
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* undefined transition */ }
//	if statemachine.IsTransitionRejectedError(err)   { /* guard said no */ }
package statemachine
