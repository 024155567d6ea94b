package statemachine

import (
	"fmt"
)

// Option configures a definition during construction.
type Option[S, E comparable] func(*Definition[S, E]) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption[S, E comparable] func(*Transition[S, E])

// Define builds an immutable transition table from options.
func Define[S, E comparable](opts ...Option[S, E]) (*Definition[S, E], error) {
	d := &Definition[S, E]{transitions: make(map[S]map[E][]Transition[S, E])}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if len(d.transitions) == 0 {
		return nil, ErrEmptyDefinition
	}
	return d, nil
}

// MustDefine is Define that panics on error, for package-level tables.
func MustDefine[S, E comparable](opts ...Option[S, E]) *Definition[S, E] {
	d, err := Define(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to define state machine: %v", err))
	}
	return d
}

// WithTransition adds a single transition.
func WithTransition[S, E comparable](from, to S, event E, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(d *Definition[S, E]) error {
		t := Transition[S, E]{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		d.add(t)
		return nil
	}
}

// WithTransitions adds multiple transitions at once.
func WithTransitions[S, E comparable](transitions ...Transition[S, E]) Option[S, E] {
	return func(d *Definition[S, E]) error {
		for i, t := range transitions {
			for _, g := range t.Guards {
				if g == nil {
					return fmt.Errorf("transition[%d] %v->%v on %v: %w", i, t.From, t.To, t.Event, ErrNilGuard)
				}
			}
			for _, a := range t.Actions {
				if a == nil {
					return fmt.Errorf("transition[%d] %v->%v on %v: %w", i, t.From, t.To, t.Event, ErrNilAction)
				}
			}
			d.add(t)
		}
		return nil
	}
}

// WithGuard adds a guard to a transition.
func WithGuard[S, E comparable](guard Guard[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

// WithAction adds an action to a transition.
func WithAction[S, E comparable](action Action[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}
