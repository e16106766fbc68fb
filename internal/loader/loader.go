// Package loader validates uploaded files and decodes them into pixel sources.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Config struct {
	MaxBytes   int64
	MaxPixels  int
	AcceptTIFF bool
}

type Loader struct {
	maxBytes  int64
	maxPixels int
	accepted  map[string]bool
}

func New(cfg Config) *Loader {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = domain.MaxPixels
	}

	accepted := map[string]bool{
		domain.FormatJPEG: true,
		domain.FormatPNG:  true,
		domain.FormatWebP: true,
		domain.FormatGIF:  true,
	}
	if cfg.AcceptTIFF {
		accepted[domain.FormatTIFF] = true
	}

	return &Loader{maxBytes: maxBytes, maxPixels: maxPixels, accepted: accepted}
}

func (l *Loader) MaxBytes() int64 {
	return l.maxBytes
}

func (l *Loader) MaxPixels() int {
	return l.maxPixels
}

// Accepts reports whether a declared MIME type passes the format check.
func (l *Loader) Accepts(mimeType string) bool {
	format, ok := domain.NormalizeFormat(mimeType)
	return ok && l.accepted[format]
}

// Validate runs the checks that happen before any bytes are decoded.
func (l *Loader) Validate(file domain.File) error {
	if !l.Accepts(file.MIMEType) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, file.MIMEType)
	}

	size := file.Size
	if n := int64(len(file.Data)); n > size {
		size = n
	}
	if size > l.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrFileTooLarge, size, l.maxBytes)
	}
	return nil
}

func (l *Loader) Load(ctx context.Context, file domain.File) (domain.PixelSource, error) {
	if err := l.Validate(file); err != nil {
		return domain.PixelSource{}, err
	}

	select {
	case <-ctx.Done():
		return domain.PixelSource{}, ctx.Err()
	default:
	}

	if len(file.Data) == 0 {
		return domain.PixelSource{}, fmt.Errorf("%w: empty file", domain.ErrDecodeFailure)
	}

	detected := mimetype.Detect(file.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return domain.PixelSource{}, fmt.Errorf("%w: content is %s", domain.ErrDecodeFailure, detected.String())
	}

	img, format, err := l.decode(file.Data)
	if err != nil {
		return domain.PixelSource{}, err
	}

	return domain.PixelSource{
		Image:     img,
		Format:    format,
		SizeBytes: int64(len(file.Data)),
	}, nil
}

// decode reads the header first so oversized dimensions are rejected before
// any pixel memory is allocated.
func (l *Loader) decode(data []byte) (img *image.NRGBA, format string, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, format = nil, ""
			err = fmt.Errorf("%w: decoder panic: %v", domain.ErrDecodeFailure, r)
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read header: %v", domain.ErrDecodeFailure, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: zero dimensions %dx%d", domain.ErrDecodeFailure, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(l.maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds limit of %d pixels", domain.ErrFileTooLarge, cfg.Width, cfg.Height, l.maxPixels)
	}

	decoded, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecodeFailure, err)
	}

	normalized, ok := domain.NormalizeFormat(name)
	if !ok {
		normalized = name
	}
	return imaging.Clone(decoded), normalized, nil
}

// Detect sniffs the content type of raw bytes.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}
