package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "image/jpeg", want: FormatJPEG, ok: true},
		{in: "image/jpg", want: FormatJPEG, ok: true},
		{in: "JPG", want: FormatJPEG, ok: true},
		{in: "image/png; charset=binary", want: FormatPNG, ok: true},
		{in: ".webp", want: FormatWebP, ok: true},
		{in: "image/gif", want: FormatGIF, ok: true},
		{in: "image/tiff", want: FormatTIFF, ok: true},
		{in: "text/plain", ok: false},
		{in: "", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeFormat(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	got, err := ParseOutputFormat("image/webp")
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, got)

	_, err = ParseOutputFormat("image/gif")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseOutputFormat("image/bmp")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSuggestedFileName(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	assert.Equal(t, "converted-image-1700000000123.jpg", SuggestedFileName(at, FormatJPEG))
	assert.Equal(t, "converted-image-1700000000123.webp", SuggestedFileName(at, FormatWebP))
}
