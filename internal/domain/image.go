package domain

import (
	"fmt"
	"image"
	"time"
)

// File is what a picker or drop target hands to the loader.
type File struct {
	Name     string
	Data     []byte
	MIMEType string
	Size     int64
}

// PixelSource is a decoded image. It is never mutated after the loader
// returns it; a new upload replaces it.
type PixelSource struct {
	Image     *image.NRGBA
	Format    string
	SizeBytes int64
}

func (p PixelSource) Width() int  { return p.Image.Bounds().Dx() }
func (p PixelSource) Height() int { return p.Image.Bounds().Dy() }

// RenderedBuffer is the result of applying a TransformState to a PixelSource.
type RenderedBuffer struct {
	Image *image.NRGBA
	State TransformState
}

func (r RenderedBuffer) Width() int  { return r.Image.Bounds().Dx() }
func (r RenderedBuffer) Height() int { return r.Image.Bounds().Dy() }

// EncodedOutput is a serialized render ready to be handed to a download sink.
type EncodedOutput struct {
	Data      []byte
	Format    string
	MIMEType  string
	Quality   float64
	Width     int
	Height    int
	CreatedAt time.Time
}

// FileName returns converted-image-<unix millis>.<ext>.
func (o EncodedOutput) FileName() string {
	return SuggestedFileName(o.CreatedAt, o.Format)
}

func SuggestedFileName(at time.Time, format string) string {
	return fmt.Sprintf("converted-image-%d.%s", at.UnixMilli(), Extension(format))
}
