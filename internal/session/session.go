// Package session owns the single image being edited: its decoded source, the
// transform state and the current render.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/dunamismax/pixeledit/internal/loader"
	"github.com/dunamismax/pixeledit/internal/pipeline"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Features struct {
	EnableTone         bool
	EnableFormatDialog bool
}

func AllFeatures() Features {
	return Features{EnableTone: true, EnableFormatDialog: true}
}

type Options struct {
	Loader        *loader.Loader
	Encoder       *pipeline.Encoder
	Features      Features
	DefaultFormat string
	Logger        zerolog.Logger
	Tracer        trace.Tracer
	Metrics       *Metrics
}

type Session struct {
	loader        *loader.Loader
	encoder       *pipeline.Encoder
	features      Features
	defaultFormat string
	logger        zerolog.Logger
	tracer        trace.Tracer
	metrics       *Metrics

	processing atomic.Bool

	mu       sync.Mutex
	source   *domain.PixelSource
	state    domain.TransformState
	rendered *domain.RenderedBuffer
}

func New(opts Options) (*Session, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if opts.Encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}

	defaultFormat := domain.FormatPNG
	if opts.DefaultFormat != "" {
		f, err := domain.ParseOutputFormat(opts.DefaultFormat)
		if err != nil {
			return nil, fmt.Errorf("default format: %w", err)
		}
		defaultFormat = f
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("pixeledit/session")
	}

	return &Session{
		loader:        opts.Loader,
		encoder:       opts.Encoder,
		features:      opts.Features,
		defaultFormat: defaultFormat,
		logger:        opts.Logger,
		tracer:        tracer,
		metrics:       opts.Metrics,
		state:         domain.DefaultTransformState(),
	}, nil
}

func (s *Session) Features() Features {
	return s.features
}

func (s *Session) DefaultFormat() string {
	return s.defaultFormat
}

// Processing reports whether a load is in flight.
func (s *Session) Processing() bool {
	return s.processing.Load()
}

// Load decodes file and makes it the current image. Only one load may be in
// flight; a concurrent call fails with domain.ErrBusy. On any error the
// previous image and state are kept.
func (s *Session) Load(ctx context.Context, file domain.File) (domain.PixelSource, error) {
	if !s.processing.CompareAndSwap(false, true) {
		return domain.PixelSource{}, domain.ErrBusy
	}
	defer s.processing.Store(false)
	return s.load(ctx, file)
}

func (s *Session) load(ctx context.Context, file domain.File) (domain.PixelSource, error) {
	startedAt := time.Now()
	ctx, span := s.tracer.Start(ctx, "session.load")
	span.SetAttributes(
		attribute.String("file.mime_type", file.MIMEType),
		attribute.Int64("file.size", file.Size),
	)
	defer span.End()

	src, err := s.loader.Load(ctx, file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.metrics.observeLoad(err, time.Since(startedAt))
		s.logger.Warn().Err(err).Str("mime_type", file.MIMEType).Int64("size", file.Size).Msg("load rejected")
		return domain.PixelSource{}, err
	}

	s.mu.Lock()
	s.source = &src
	s.state.Reset()
	s.rendered = nil
	s.mu.Unlock()

	s.metrics.observeLoad(nil, time.Since(startedAt))
	span.SetAttributes(
		attribute.Int("image.width", src.Width()),
		attribute.Int("image.height", src.Height()),
		attribute.String("image.format", src.Format),
	)
	s.logger.Info().
		Str("name", file.Name).
		Str("format", src.Format).
		Int("width", src.Width()).
		Int("height", src.Height()).
		Msg("image loaded")
	return src, nil
}

// State returns the current transform state and whether an image is loaded.
func (s *Session) State() (domain.TransformState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.source != nil
}

func (s *Session) Source() (domain.PixelSource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return domain.PixelSource{}, false
	}
	return *s.source, true
}

func (s *Session) RotateQuarterTurn() (domain.TransformState, error) {
	return s.mutate(func(st *domain.TransformState) error {
		st.RotateQuarterTurn()
		return nil
	})
}

// Rotate applies n clockwise quarter turns at once.
func (s *Session) Rotate(n int) (domain.TransformState, error) {
	return s.mutate(func(st *domain.TransformState) error {
		st.Rotate(n)
		return nil
	})
}

func (s *Session) ToggleFlip() (domain.TransformState, error) {
	return s.mutate(func(st *domain.TransformState) error {
		st.ToggleFlip()
		return nil
	})
}

func (s *Session) SetBrightness(pct int) (domain.TransformState, error) {
	if !s.features.EnableTone {
		return s.current(), fmt.Errorf("%w: brightness", domain.ErrFeatureDisabled)
	}
	return s.mutate(func(st *domain.TransformState) error {
		_, err := st.SetBrightness(pct)
		return err
	})
}

func (s *Session) SetContrast(pct int) (domain.TransformState, error) {
	if !s.features.EnableTone {
		return s.current(), fmt.Errorf("%w: contrast", domain.ErrFeatureDisabled)
	}
	return s.mutate(func(st *domain.TransformState) error {
		_, err := st.SetContrast(pct)
		return err
	})
}

func (s *Session) current() domain.TransformState {
	st, _ := s.State()
	return st
}

// mutate applies fn to a copy of the state and commits it only on success.
// Any committed change drops the current render.
func (s *Session) mutate(fn func(*domain.TransformState) error) (domain.TransformState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return s.state, domain.ErrNoImage
	}

	next := s.state
	if err := fn(&next); err != nil {
		return s.state, err
	}
	if next != s.state {
		s.state = next
		s.rendered = nil
	}
	s.logger.Debug().
		Int("rotation", s.state.Rotation).
		Bool("flipped", s.state.Flipped).
		Int("brightness", s.state.Brightness).
		Int("contrast", s.state.Contrast).
		Msg("state updated")
	return s.state, nil
}

// Render returns the buffer for the current source and state, recomputing it
// if anything changed since the last call.
func (s *Session) Render(ctx context.Context) (domain.RenderedBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderLocked(ctx)
}

func (s *Session) renderLocked(ctx context.Context) (domain.RenderedBuffer, error) {
	if s.source == nil {
		return domain.RenderedBuffer{}, domain.ErrNoImage
	}
	if s.rendered != nil {
		return *s.rendered, nil
	}

	_, span := s.tracer.Start(ctx, "session.render")
	defer span.End()
	span.SetAttributes(
		attribute.Int("state.rotation", s.state.Rotation),
		attribute.Bool("state.flipped", s.state.Flipped),
		attribute.Int("state.brightness", s.state.Brightness),
		attribute.Int("state.contrast", s.state.Contrast),
	)

	startedAt := time.Now()
	buf := pipeline.Render(*s.source, s.state)
	s.metrics.observeRender(time.Since(startedAt))

	s.rendered = &buf
	return buf, nil
}

// Export renders the current image and encodes it. An empty format means the
// session default.
func (s *Session) Export(ctx context.Context, format string, quality float64) (domain.EncodedOutput, error) {
	if format == "" {
		format = s.defaultFormat
	}
	normalized, err := domain.ParseOutputFormat(format)
	if err != nil {
		return domain.EncodedOutput{}, err
	}
	if !s.features.EnableFormatDialog && normalized != s.defaultFormat {
		return domain.EncodedOutput{}, fmt.Errorf("%w: only %s export is enabled", domain.ErrFeatureDisabled, s.defaultFormat)
	}

	buf, err := s.Render(ctx)
	if err != nil {
		return domain.EncodedOutput{}, err
	}

	ctx, span := s.tracer.Start(ctx, "session.export")
	span.SetAttributes(
		attribute.String("export.format", normalized),
		attribute.Float64("export.quality", quality),
		attribute.String("export.backend", s.encoder.Backend()),
	)
	defer span.End()

	startedAt := time.Now()
	out, err := s.encoder.Encode(ctx, buf, normalized, quality)
	s.metrics.observeExport(normalized, err, len(out.Data), time.Since(startedAt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		s.logger.Warn().Err(err).Str("format", normalized).Float64("quality", quality).Msg("export failed")
		return domain.EncodedOutput{}, err
	}

	s.logger.Info().
		Str("format", out.Format).
		Int("bytes", len(out.Data)).
		Int("width", out.Width).
		Int("height", out.Height).
		Msg("image exported")
	return out, nil
}
