package store

import (
	"context"
	"testing"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExportStoreRecentNewestFirst(t *testing.T) {
	s := NewMemoryExportStore(0)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, domain.ExportRecord{ID: id}))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryExportStoreDropsOldest(t *testing.T) {
	s := NewMemoryExportStore(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, domain.ExportRecord{ID: id}))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

var _ ExportStore = (*MemoryExportStore)(nil)
var _ ExportStore = (*PostgresExportStore)(nil)
