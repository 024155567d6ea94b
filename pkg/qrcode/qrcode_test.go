package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/pkg/qrcode"
)

const uri = "otpauth://totp/Cepalab:ana%40example.com?secret=JBSWY3DPEHPK3PXP&issuer=Cepalab"

func TestPNG(t *testing.T) {
	t.Parallel()

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		for _, c := range []string{"", "  \t\n"} {
			img, err := qrcode.PNG(c)
			assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
			assert.Nil(t, img)
		}
	})

	t.Run("default size", func(t *testing.T) {
		t.Parallel()
		img, err := qrcode.PNG(uri)
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(img))
		require.NoError(t, err)
		assert.Equal(t, qrcode.DefaultSize, decoded.Bounds().Dx())
		assert.Equal(t, qrcode.DefaultSize, decoded.Bounds().Dy())
	})

	t.Run("custom size and level", func(t *testing.T) {
		t.Parallel()
		img, err := qrcode.PNG(uri, qrcode.WithSize(320), qrcode.WithRecoveryLevel(qrcode.High), qrcode.WithoutBorder())
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(img))
		require.NoError(t, err)
		assert.Equal(t, 320, decoded.Bounds().Dx())
	})

	t.Run("non-positive size keeps default", func(t *testing.T) {
		t.Parallel()
		img, err := qrcode.PNG(uri, qrcode.WithSize(-5))
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(img))
		require.NoError(t, err)
		assert.Equal(t, qrcode.DefaultSize, decoded.Bounds().Dx())
	})

	t.Run("content too long", func(t *testing.T) {
		t.Parallel()
		_, err := qrcode.PNG(strings.Repeat("x", 8000))
		assert.ErrorIs(t, err, qrcode.ErrFailedToGenerate)
	})
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	s, err := qrcode.DataURI(uri)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(s, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "data:image/png;base64,"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = qrcode.DataURI("")
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}
