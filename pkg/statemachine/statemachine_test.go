package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/pkg/statemachine"
)

type state string
type event string

const (
	draft     state = "draft"
	inReview  state = "in_review"
	approved  state = "approved"
	published state = "published"

	submit  event = "submit"
	approve event = "approve"
	publish event = "publish"
)

func TestDefinition_Next(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	def := statemachine.MustDefine(
		statemachine.WithTransition(draft, inReview, submit),
		statemachine.WithTransition(inReview, approved, approve),
	)

	next, err := def.Next(ctx, draft, submit, nil)
	require.NoError(t, err)
	assert.Equal(t, inReview, next)

	next, err = def.Next(ctx, next, approve, nil)
	require.NoError(t, err)
	assert.Equal(t, approved, next)

	t.Run("undefined transition", func(t *testing.T) {
		t.Parallel()
		got, err := def.Next(ctx, draft, approve, nil)
		require.Error(t, err)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.Equal(t, draft, got)
		assert.Contains(t, err.Error(), "draft")
		assert.Contains(t, err.Error(), "approve")
	})
}

func TestDefinition_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	authorized := func(_ context.Context, _ state, _ event, data any) bool {
		ok, _ := data.(bool)
		return ok
	}

	def := statemachine.MustDefine(
		statemachine.WithTransition(draft, inReview, submit, statemachine.WithGuard(authorized)),
	)

	assert.False(t, def.Can(ctx, draft, submit, false))
	_, err := def.Next(ctx, draft, submit, false)
	assert.True(t, statemachine.IsTransitionRejectedError(err))

	assert.True(t, def.Can(ctx, draft, submit, true))
	next, err := def.Next(ctx, draft, submit, true)
	require.NoError(t, err)
	assert.Equal(t, inReview, next)
}

func TestDefinition_GuardBranching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	isAdmin := func(_ context.Context, _ state, _ event, data any) bool { return data == "admin" }

	// First matching transition wins.
	def := statemachine.MustDefine(
		statemachine.WithTransition(inReview, published, approve, statemachine.WithGuard(isAdmin)),
		statemachine.WithTransition(inReview, approved, approve),
	)

	next, err := def.Next(ctx, inReview, approve, "admin")
	require.NoError(t, err)
	assert.Equal(t, published, next)

	next, err = def.Next(ctx, inReview, approve, "editor")
	require.NoError(t, err)
	assert.Equal(t, approved, next)
}

func TestDefinition_Actions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls []string
	record := func(_ context.Context, from, to state, e event, _ any) error {
		calls = append(calls, string(from)+">"+string(to)+":"+string(e))
		return nil
	}
	errBoom := errors.New("boom")
	fail := func(context.Context, state, state, event, any) error { return errBoom }

	def := statemachine.MustDefine(
		statemachine.WithTransition(draft, inReview, submit, statemachine.WithAction(record)),
		statemachine.WithTransition(inReview, approved, approve, statemachine.WithAction(fail)),
	)

	_, err := def.Next(ctx, draft, submit, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft>in_review:submit"}, calls)

	got, err := def.Next(ctx, inReview, approve, nil)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, inReview, got)

	// Can does not run actions.
	assert.True(t, def.Can(ctx, draft, submit, nil))
	assert.Len(t, calls, 1)
}

func TestDefinition_Events(t *testing.T) {
	t.Parallel()

	def := statemachine.MustDefine(
		statemachine.WithTransition(inReview, approved, approve),
		statemachine.WithTransition(inReview, draft, submit),
	)

	assert.ElementsMatch(t, []event{approve, submit}, def.Events(inReview))
	assert.Empty(t, def.Events(published))
}

func TestDefine_Errors(t *testing.T) {
	t.Parallel()

	_, err := statemachine.Define[state, event]()
	assert.ErrorIs(t, err, statemachine.ErrEmptyDefinition)

	_, err = statemachine.Define(statemachine.WithTransitions(statemachine.Transition[state, event]{
		From: draft, To: inReview, Event: submit,
		Guards: []statemachine.Guard[state, event]{nil},
	}))
	assert.ErrorIs(t, err, statemachine.ErrNilGuard)

	assert.Panics(t, func() { statemachine.MustDefine[state, event]() })
}

func TestMachine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	def := statemachine.MustDefine(
		statemachine.WithTransitions(
			statemachine.Transition[state, event]{From: draft, To: inReview, Event: submit},
			statemachine.Transition[state, event]{From: inReview, To: published, Event: publish},
		),
	)

	m := def.Machine(draft)
	assert.Equal(t, draft, m.Current())
	assert.True(t, m.CanFire(ctx, submit, nil))

	require.NoError(t, m.Fire(ctx, submit, nil))
	assert.Equal(t, inReview, m.Current())

	err := m.Fire(ctx, submit, nil)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
	assert.Equal(t, inReview, m.Current())

	require.NoError(t, m.Fire(ctx, publish, nil))
	m.Reset()
	assert.Equal(t, draft, m.Current())
}
