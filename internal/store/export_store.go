package store

import (
	"context"

	"github.com/dunamismax/pixeledit/internal/domain"
)

// ExportStore is the export ledger.
type ExportStore interface {
	Record(ctx context.Context, rec domain.ExportRecord) error
	Recent(ctx context.Context, limit int) ([]domain.ExportRecord, error)
}
