package token_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/pkg/token"
)

type grant struct {
	ID  string    `json:"id"`
	Doc string    `json:"doc"`
	Exp time.Time `json:"exp"`
}

func (g grant) ExpiresAt() time.Time { return g.Exp }

type plain struct {
	N int `json:"n"`
}

var key = bytes.Repeat([]byte{7}, 32)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	tok, err := token.GenerateToken(grant{ID: "c1", Doc: "d1", Exp: exp}, key)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(tok, "."))

	g, err := token.ParseToken[grant](tok, key)
	require.NoError(t, err)
	assert.Equal(t, "c1", g.ID)
	assert.Equal(t, "d1", g.Doc)
	assert.True(t, exp.Equal(g.Exp))

	p, err := token.GenerateToken(plain{N: 3}, key)
	require.NoError(t, err)
	got, err := token.ParseToken[plain](p, key)
	require.NoError(t, err)
	assert.Equal(t, 3, got.N)
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok, err := token.GenerateToken(grant{ID: "c1", Exp: exp}, key)
	require.NoError(t, err)

	_, err = token.ParseTokenAt[grant](tok, key, exp.Add(-time.Second))
	require.NoError(t, err)

	_, err = token.ParseTokenAt[grant](tok, key, exp)
	assert.ErrorIs(t, err, token.ErrExpired)
}

func TestTampering(t *testing.T) {
	t.Parallel()

	tok, err := token.GenerateToken(grant{ID: "c1", Doc: "d1"}, key)
	require.NoError(t, err)

	other, err := token.GenerateToken(grant{ID: "c1", Doc: "d2"}, key)
	require.NoError(t, err)

	// Swap payloads between two valid tokens.
	forged := strings.Split(other, ".")[0] + "." + strings.Split(tok, ".")[1]
	_, err = token.ParseToken[grant](forged, key)
	assert.ErrorIs(t, err, token.ErrSignatureInvalid)

	_, err = token.ParseToken[grant](tok, bytes.Repeat([]byte{8}, 32))
	assert.ErrorIs(t, err, token.ErrSignatureInvalid)

	for _, bad := range []string{"", "abc", "a.b.c", ".sig", "payload.", "!!!.???"} {
		_, err = token.ParseToken[grant](bad, key)
		assert.ErrorIs(t, err, token.ErrInvalidToken, bad)
	}
}

func TestKeySize(t *testing.T) {
	t.Parallel()

	_, err := token.GenerateToken(plain{}, []byte("short"))
	assert.ErrorIs(t, err, token.ErrInvalidKey)

	_, err = token.ParseToken[plain]("a.b", []byte("short"))
	assert.ErrorIs(t, err, token.ErrInvalidKey)
}
