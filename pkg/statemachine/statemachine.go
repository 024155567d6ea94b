package statemachine

import (
	"context"
	"fmt"
)

// Action executes side effects during a transition. Returning an error prevents the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // All must pass for transition to proceed
	Actions []Action[S, E] // Executed in order before state change
}

// Definition is an immutable transition table.
// It is safe for concurrent use and evaluates transitions against a state
// supplied by the caller, so the authoritative state can live in storage.
type Definition[S, E comparable] struct {
	transitions map[S]map[E][]Transition[S, E]
}

// Next resolves event from state from, runs guards and actions, and returns the target state.
// The first transition whose guards all pass wins, so declaration order sets priority.
func (d *Definition[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	t, err := d.resolve(ctx, from, event, data)
	if err != nil {
		return from, err
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			return from, fmt.Errorf("action failed: %w", err)
		}
	}

	return t.To, nil
}

// Can reports whether event would be accepted from state from. Actions are not run.
func (d *Definition[S, E]) Can(ctx context.Context, from S, event E, data any) bool {
	_, err := d.resolve(ctx, from, event, data)
	return err == nil
}

// Events lists the events defined for state from, in declaration order.
func (d *Definition[S, E]) Events(from S) []E {
	var events []E
	seen := make(map[E]struct{})
	for _, ts := range d.transitions[from] {
		for _, t := range ts {
			if _, ok := seen[t.Event]; !ok {
				seen[t.Event] = struct{}{}
				events = append(events, t.Event)
			}
		}
	}
	return events
}

// Machine returns a stateful machine over this definition, starting at initial.
func (d *Definition[S, E]) Machine(initial S) *Machine[S, E] {
	return &Machine[S, E]{def: d, initial: initial, current: initial}
}

func (d *Definition[S, E]) resolve(ctx context.Context, from S, event E, data any) (*Transition[S, E], error) {
	transitions := d.transitions[from][event]
	if len(transitions) == 0 {
		return nil, NewErrNoTransitionAvailable(fmt.Sprint(from), fmt.Sprint(event))
	}

	for i := range transitions {
		t := &transitions[i]
		passed := true
		for _, guard := range t.Guards {
			if !guard(ctx, from, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return t, nil
		}
	}

	return nil, NewErrTransitionRejected(fmt.Sprint(from), fmt.Sprint(event))
}

func (d *Definition[S, E]) add(t Transition[S, E]) {
	if _, ok := d.transitions[t.From]; !ok {
		d.transitions[t.From] = make(map[E][]Transition[S, E])
	}
	// Multiple transitions allowed for same from/event to support guard-based branching
	d.transitions[t.From][t.Event] = append(d.transitions[t.From][t.Event], t)
}
