//go:build cgo

package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func TestEncodeWebPRoundTrip(t *testing.T) {
	enc := NewEncoderWithBackend(stdlibBackend{})
	state := domain.DefaultTransformState()
	state.RotateQuarterTurn()

	out, err := enc.Encode(context.Background(), Render(testSource(100, 50), state), "image/webp", 0.8)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", out.MIMEType)

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}
