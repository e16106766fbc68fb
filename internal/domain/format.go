package domain

import (
	"fmt"
	"strings"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatGIF  = "gif"
	FormatTIFF = "tiff"
)

// MaxUploadBytes is the default loader size limit (10 MiB).
const MaxUploadBytes = 10 * 1024 * 1024

// MaxPixels is the default decoded size limit. 40 megapixels is 160 MB as
// NRGBA, and a render needs a second buffer of the same size.
const MaxPixels = 40_000_000

// DefaultQuality is used by quick conversions that do not ask for a quality.
const DefaultQuality = 0.8

var mimeByFormat = map[string]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatWebP: "image/webp",
	FormatGIF:  "image/gif",
	FormatTIFF: "image/tiff",
}

// NormalizeFormat maps a MIME type, bare format name or extension to one of
// the Format* constants. The second return value is false for anything else.
func NormalizeFormat(in string) (string, bool) {
	in = strings.ToLower(strings.TrimSpace(in))
	in = strings.TrimPrefix(in, "image/")
	in = strings.TrimPrefix(in, ".")
	if i := strings.IndexByte(in, ';'); i >= 0 {
		in = strings.TrimSpace(in[:i])
	}

	switch in {
	case "jpeg", "jpg", "pjpeg":
		return FormatJPEG, true
	case "png", "x-png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	case "gif":
		return FormatGIF, true
	case "tiff", "tif":
		return FormatTIFF, true
	default:
		return "", false
	}
}

// ParseOutputFormat accepts only formats the encoder can produce.
func ParseOutputFormat(in string) (string, error) {
	format, ok := NormalizeFormat(in)
	if !ok || !IsOutputFormat(format) {
		return "", fmt.Errorf("%w: output %q", ErrUnsupportedFormat, in)
	}
	return format, nil
}

func IsOutputFormat(format string) bool {
	switch format {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	default:
		return false
	}
}

func MIMEType(format string) string {
	if m, ok := mimeByFormat[format]; ok {
		return m
	}
	return "application/octet-stream"
}

func Extension(format string) string {
	if format == FormatJPEG {
		return "jpg"
	}
	return format
}

// IsLossy reports whether quality has any effect on the format.
func IsLossy(format string) bool {
	return format == FormatJPEG || format == FormatWebP
}
