package convert

import (
	"context"
	"fmt"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/dunamismax/pixeledit/internal/id"
	"github.com/dunamismax/pixeledit/internal/store"
	"github.com/rs/zerolog"
)

const EventImageExported = "image.exported"

// Delivery describes where an export ended up.
type Delivery struct {
	ExportID string `json:"export_id"`
	FileName string `json:"file_name"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Emitter is the download sink.
type Emitter interface {
	Emit(ctx context.Context, out domain.EncodedOutput) (Delivery, error)
}

type Notifier interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

type PublisherConfig struct {
	Emitter    Emitter
	Ledger     store.ExportStore
	Notifier   Notifier
	WebhookURL string
	Logger     zerolog.Logger
}

// Publisher hands an export to the sink, then records and announces it.
// Ledger and webhook failures are logged, never returned.
type Publisher struct {
	emitter    Emitter
	ledger     store.ExportStore
	notifier   Notifier
	webhookURL string
	logger     zerolog.Logger
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{
		emitter:    cfg.Emitter,
		ledger:     cfg.Ledger,
		notifier:   cfg.Notifier,
		webhookURL: cfg.WebhookURL,
		logger:     cfg.Logger,
	}
}

// Publish delivers out. Without an emitter the caller owns the bytes and the
// returned Delivery only carries metadata.
func (p *Publisher) Publish(ctx context.Context, out domain.EncodedOutput, sourceBytes int64, compute time.Duration) (Delivery, error) {
	delivery := Delivery{
		FileName: out.FileName(),
		Format:   out.Format,
		Bytes:    len(out.Data),
		Width:    out.Width,
		Height:   out.Height,
	}

	if p.emitter != nil {
		emitted, err := p.emitter.Emit(ctx, out)
		if err != nil {
			return Delivery{}, err
		}
		delivery.Location = emitted.Location
		delivery.URL = emitted.URL
	}
	delivery.ExportID = id.New()

	p.record(ctx, out, delivery, sourceBytes, compute)
	p.notify(ctx, delivery)
	return delivery, nil
}

func (p *Publisher) record(ctx context.Context, out domain.EncodedOutput, d Delivery, sourceBytes int64, compute time.Duration) {
	if p.ledger == nil {
		return
	}

	computeMS := compute.Milliseconds()
	if computeMS < 1 {
		computeMS = 1
	}

	rec := domain.ExportRecord{
		ID:            d.ExportID,
		FileName:      d.FileName,
		Format:        out.Format,
		Quality:       out.Quality,
		Width:         out.Width,
		Height:        out.Height,
		Bytes:         len(out.Data),
		SourceBytes:   sourceBytes,
		ComputeTimeMS: computeMS,
		Location:      d.Location,
		CreatedAt:     out.CreatedAt,
	}
	if err := p.ledger.Record(ctx, rec); err != nil {
		p.logger.Warn().Err(err).Str("export_id", d.ExportID).Msg("export ledger write failed")
	}
}

func (p *Publisher) notify(ctx context.Context, d Delivery) {
	if p.notifier == nil || p.webhookURL == "" {
		return
	}
	if err := p.notifier.Send(ctx, p.webhookURL, EventImageExported, d); err != nil {
		p.logger.Warn().Err(fmt.Errorf("dispatch webhook: %w", err)).Str("export_id", d.ExportID).Msg("webhook delivery failed")
	}
}
