package signature_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/signature"
)

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := signature.DefaultPolicy()
	require.NoError(t, p.Validate())

	tests := []struct {
		level    signature.Level
		required bool
		fresh    bool
		allowed  []challenge.Method
		denied   []challenge.Method
	}{
		{signature.LevelBasico, false, false, nil, []challenge.Method{challenge.MethodTOTP}},
		{signature.LevelIntermediario, true, false,
			[]challenge.Method{challenge.MethodTOTP, challenge.MethodBackupCode},
			[]challenge.Method{challenge.MethodQRScan}},
		{signature.LevelAlto, true, true,
			[]challenge.Method{challenge.MethodTOTP, challenge.MethodBackupCode},
			[]challenge.Method{challenge.MethodQRScan}},
		{signature.LevelCritico, true, true,
			[]challenge.Method{challenge.MethodQRScan, challenge.MethodBackupCode},
			[]challenge.Method{challenge.MethodTOTP}},
	}
	for _, tt := range tests {
		r, ok := p.Rule(tt.level)
		require.True(t, ok, tt.level)
		assert.Equal(t, tt.required, r.RequiresChallenge, tt.level)
		assert.Equal(t, tt.fresh, r.Fresh, tt.level)
		for _, m := range tt.allowed {
			assert.True(t, r.Allows(m), "%s should allow %s", tt.level, m)
		}
		for _, m := range tt.denied {
			assert.False(t, r.Allows(m), "%s should deny %s", tt.level, m)
		}
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	l, err := signature.ParseLevel(" Critico ")
	require.NoError(t, err)
	assert.Equal(t, signature.LevelCritico, l)

	_, err = signature.ParseLevel("maximo")
	assert.ErrorIs(t, err, signature.ErrUnknownLevel)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := signature.ParsePolicy([]byte(`
freshness: 2m
levels:
  intermediario:
    requires_challenge: true
    methods: [totp]
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, p.Freshness)

	r, _ := p.Rule(signature.LevelIntermediario)
	assert.Equal(t, []challenge.Method{challenge.MethodTOTP}, r.Methods)

	r, _ = p.Rule(signature.LevelCritico)
	assert.True(t, r.Allows(challenge.MethodQRScan), "omitted levels keep defaults")
}

func TestParsePolicyInvalid(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]string{
		"syntax":           "levels: [",
		"unknown level":    "levels:\n  maximo:\n    requires_challenge: false\n",
		"no methods":       "levels:\n  alto:\n    requires_challenge: true\n",
		"unknown method":   "levels:\n  alto:\n    requires_challenge: true\n    methods: [sms]\n",
		"methods no check": "levels:\n  basico:\n    methods: [totp]\n",
	} {
		_, err := signature.ParsePolicy([]byte(doc))
		assert.ErrorIs(t, err, signature.ErrInvalidPolicy, name)
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("freshness: 90s\n"), 0o600))

	p, err := signature.LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, p.Freshness)

	_, err = signature.LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, signature.ErrInvalidPolicy)
}

func TestConfigPolicy(t *testing.T) {
	t.Parallel()

	p, err := signature.Config{Freshness: 3 * time.Minute}.Policy()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, p.Freshness)

	_, err = signature.Config{PolicyFile: "/nonexistent/policy.yaml"}.Policy()
	assert.ErrorIs(t, err, signature.ErrInvalidPolicy)
}
