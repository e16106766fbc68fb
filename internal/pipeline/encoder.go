package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
)

// Backend serializes an image. quality is 1..100 and only meaningful for
// lossy formats.
type Backend interface {
	Name() string
	Encode(ctx context.Context, img *image.NRGBA, format string, quality int) ([]byte, error)
}

type Encoder struct {
	backend Backend
	now     func() time.Time
}

func NewEncoder() (*Encoder, error) {
	backend, err := newBackend()
	if err != nil {
		return nil, fmt.Errorf("build encoder backend: %w", err)
	}
	return NewEncoderWithBackend(backend), nil
}

func NewEncoderWithBackend(backend Backend) *Encoder {
	return &Encoder{backend: backend, now: time.Now}
}

func (e *Encoder) Backend() string {
	return e.backend.Name()
}

// Encode serializes buf as format at quality in [0,1]. Failures from the
// backend wrap domain.ErrEncodeFailure and may be retried.
func (e *Encoder) Encode(ctx context.Context, buf domain.RenderedBuffer, format string, quality float64) (domain.EncodedOutput, error) {
	normalized, err := domain.ParseOutputFormat(format)
	if err != nil {
		return domain.EncodedOutput{}, err
	}
	if math.IsNaN(quality) || quality < 0 || quality > 1 {
		return domain.EncodedOutput{}, fmt.Errorf("%w: quality must be within [0,1], got %v", domain.ErrInvalidParameter, quality)
	}
	if buf.Image == nil {
		return domain.EncodedOutput{}, fmt.Errorf("%w: empty buffer", domain.ErrEncodeFailure)
	}

	select {
	case <-ctx.Done():
		return domain.EncodedOutput{}, ctx.Err()
	default:
	}

	data, err := e.backend.Encode(ctx, buf.Image, normalized, qualityPercent(quality))
	if err != nil {
		return domain.EncodedOutput{}, fmt.Errorf("%w: %s via %s: %v", domain.ErrEncodeFailure, normalized, e.backend.Name(), err)
	}

	return domain.EncodedOutput{
		Data:      data,
		Format:    normalized,
		MIMEType:  domain.MIMEType(normalized),
		Quality:   quality,
		Width:     buf.Width(),
		Height:    buf.Height(),
		CreatedAt: e.now().UTC(),
	}, nil
}

func qualityPercent(q float64) int {
	return clamp(int(math.Round(q*100)), 1, 100)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
