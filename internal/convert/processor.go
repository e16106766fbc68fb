// Package convert runs one image through load, edit, export and delivery.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/dunamismax/pixeledit/internal/session"
	"github.com/rs/zerolog"
)

type Edits struct {
	QuarterTurns int
	Flip         bool
	Brightness   *int
	Contrast     *int
}

type Request struct {
	Source   string
	MIMEType string
	Edits    Edits
	Format   string
	Quality  float64
}

type Result struct {
	State    domain.TransformState
	Delivery Delivery
}

type Fetcher interface {
	Fetch(ctx context.Context, source, declaredMIME string) (domain.File, error)
}

type Processor struct {
	fetcher   Fetcher
	session   *session.Session
	publisher *Publisher
	logger    zerolog.Logger
}

func NewProcessor(fetcher Fetcher, sess *session.Session, publisher *Publisher, logger zerolog.Logger) (*Processor, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	return &Processor{
		fetcher:   fetcher,
		session:   sess,
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Source) == "" {
		return Result{}, errors.New("source is required")
	}

	file, err := p.fetcher.Fetch(ctx, req.Source, req.MIMEType)
	if err != nil {
		return Result{}, fmt.Errorf("fetch stage: %w", err)
	}

	startedAt := time.Now()
	if _, err := p.session.Load(ctx, file); err != nil {
		return Result{}, fmt.Errorf("load stage: %w", err)
	}

	state, err := p.applyEdits(req.Edits)
	if err != nil {
		return Result{}, fmt.Errorf("edit stage: %w", err)
	}

	out, err := p.session.Export(ctx, req.Format, req.Quality)
	if err != nil {
		return Result{}, fmt.Errorf("export stage: %w", err)
	}

	delivery, err := p.publisher.Publish(ctx, out, file.Size, time.Since(startedAt))
	if err != nil {
		return Result{}, fmt.Errorf("emit stage: %w", err)
	}

	p.logger.Info().
		Str("source", req.Source).
		Str("file", delivery.FileName).
		Str("location", delivery.Location).
		Msg("conversion finished")
	return Result{State: state, Delivery: delivery}, nil
}

func (p *Processor) applyEdits(e Edits) (domain.TransformState, error) {
	state, err := p.session.Rotate(e.QuarterTurns)
	if err != nil {
		return state, err
	}
	if e.Flip {
		if state, err = p.session.ToggleFlip(); err != nil {
			return state, err
		}
	}
	if e.Brightness != nil {
		if state, err = p.session.SetBrightness(*e.Brightness); err != nil {
			return state, err
		}
	}
	if e.Contrast != nil {
		if state, err = p.session.SetContrast(*e.Contrast); err != nil {
			return state, err
		}
	}
	return state, nil
}
