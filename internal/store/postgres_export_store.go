package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dunamismax/pixeledit/internal/domain"
	_ "github.com/lib/pq"
)

const exportSchemaSQL = `
CREATE TABLE IF NOT EXISTS exports (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	format TEXT NOT NULL,
	quality DOUBLE PRECISION NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	bytes INTEGER NOT NULL,
	source_bytes BIGINT NOT NULL,
	compute_time_ms BIGINT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

type PostgresExportStore struct {
	db *sql.DB
}

func NewPostgresExportStore(ctx context.Context, dsn string) (*PostgresExportStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresExportStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresExportStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, exportSchemaSQL); err != nil {
		return fmt.Errorf("ensure exports schema: %w", err)
	}
	return nil
}

func (s *PostgresExportStore) Close() error {
	return s.db.Close()
}

func (s *PostgresExportStore) Record(ctx context.Context, rec domain.ExportRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO exports (id, file_name, format, quality, width, height, bytes, source_bytes, compute_time_ms, location, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID,
		rec.FileName,
		rec.Format,
		rec.Quality,
		rec.Width,
		rec.Height,
		rec.Bytes,
		rec.SourceBytes,
		rec.ComputeTimeMS,
		rec.Location,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

func (s *PostgresExportStore) Recent(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, file_name, format, quality, width, height, bytes, source_bytes, compute_time_ms, location, created_at
		 FROM exports
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	var out []domain.ExportRecord
	for rows.Next() {
		var rec domain.ExportRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.FileName,
			&rec.Format,
			&rec.Quality,
			&rec.Width,
			&rec.Height,
			&rec.Bytes,
			&rec.SourceBytes,
			&rec.ComputeTimeMS,
			&rec.Location,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return out, nil
}
