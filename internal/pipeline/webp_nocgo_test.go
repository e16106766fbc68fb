//go:build !cgo

package pipeline

import (
	"context"
	"testing"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWebPWithoutCgoFails(t *testing.T) {
	enc := NewEncoderWithBackend(stdlibBackend{})
	buf := Render(testSource(8, 4), domain.DefaultTransformState())

	out, err := enc.Encode(context.Background(), buf, "image/webp", 0.8)
	require.ErrorIs(t, err, domain.ErrEncodeFailure)
	assert.Contains(t, err.Error(), "cgo")
	assert.Empty(t, out.Data)

	// Other formats keep working in the same build.
	_, err = enc.Encode(context.Background(), buf, "png", 0.8)
	require.NoError(t, err)
}
