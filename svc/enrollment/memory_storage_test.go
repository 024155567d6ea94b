package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/svc/enrollment"
)

func TestMemoryStorageOptimisticSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := enrollment.NewMemoryStorage()
	userID := uuid.New()

	_, err := store.Get(ctx, userID)
	require.ErrorIs(t, err, enrollment.ErrProfileNotFound)

	p := &enrollment.Profile{UserID: userID, State: enrollment.StateSecretIssued}
	require.NoError(t, store.Save(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	dup := &enrollment.Profile{UserID: userID, State: enrollment.StateSecretIssued}
	assert.ErrorIs(t, store.Save(ctx, dup), enrollment.ErrVersionConflict)

	a, err := store.Get(ctx, userID)
	require.NoError(t, err)
	b, err := store.Get(ctx, userID)
	require.NoError(t, err)

	a.State = enrollment.StateAwaitingFirstCode
	require.NoError(t, store.Save(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.State = enrollment.StateDisabled
	assert.ErrorIs(t, store.Save(ctx, b), enrollment.ErrVersionConflict)

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StateAwaitingFirstCode, got.State)
}

func TestMemoryStorageAdvanceStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := enrollment.NewMemoryStorage()
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok, err := store.AdvanceStep(ctx, userID, 10, now)
	require.NoError(t, err)
	assert.False(t, ok, "no profile")

	p := &enrollment.Profile{UserID: userID, State: enrollment.StateEnabled, SecretEnc: "sealed", LastTOTPStep: 10}
	require.NoError(t, store.Save(ctx, p))

	ok, err = store.AdvanceStep(ctx, userID, 10, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.AdvanceStep(ctx, userID, 11, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale save does not move the step backwards.
	p.LastTOTPStep = 5
	require.NoError(t, store.Save(ctx, p))
	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.LastTOTPStep)
}
