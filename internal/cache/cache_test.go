package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Conceptual-Machines/midi-insight-api/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.AnalysisRecord{}, &models.GenerationLog{}))
	return NewStore(db)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Hash(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Hash([]byte("abc")))
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{
		FileHash: "abc",
		Filename: "first.mid",
		Response: `{"status":"success"}`,
	}))

	record, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "first.mid", record.Filename)
	assert.Equal(t, `{"status":"success"}`, record.Response)
	assert.Equal(t, 1, record.HitCount)

	// same hash replaces the stored response
	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{
		FileHash: "abc",
		Filename: "second.mid",
		Response: `{"status":"success","n":2}`,
	}))
	record, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "second.mid", record.Filename)
	assert.Equal(t, `{"status":"success","n":2}`, record.Response)
	assert.Equal(t, 2, record.HitCount)
}

func TestStore_PutWithoutHash(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Put(context.Background(), &models.AnalysisRecord{Response: "{}"}))
}

func TestStore_SetGeneratedFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.True(t, errors.Is(store.SetGeneratedFile(ctx, "abc", "continuation_abc.mid"), ErrNotFound))

	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{FileHash: "abc", Response: "{}"}))
	require.NoError(t, store.SetGeneratedFile(ctx, "abc", "continuation_abc.mid"))

	record, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "continuation_abc.mid", record.GeneratedFile)
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *stats)

	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{FileHash: "a", Response: "{}"}))
	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{FileHash: "b", Response: "{}"}))
	_, err = store.Get(ctx, "a")
	require.NoError(t, err)
	_, err = store.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, store.LogGeneration(ctx, &models.GenerationLog{
		FileHash: "a", Model: "gemini-2.5-flash", TotalTokens: 150, CostUSD: 0.01, Success: true,
	}))
	require.NoError(t, store.LogGeneration(ctx, &models.GenerationLog{
		FileHash: "a", Model: "gemini-2.5-flash", Success: false, Error: "quota",
	}))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Generations)
	assert.Equal(t, int64(1), stats.FailedGenerations)
	assert.Equal(t, int64(150), stats.TotalTokens)
	assert.InDelta(t, 0.01, stats.TotalCostUSD, 1e-9)
}

func TestStore_FindByFilename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindByFilename(ctx, "song.mid")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{FileHash: "abc", Filename: "song.mid", Response: "{}"}))
	record, err := store.FindByFilename(ctx, "song.mid")
	require.NoError(t, err)
	assert.Equal(t, "abc", record.FileHash)
}

func TestStore_Rename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.True(t, errors.Is(store.Rename(ctx, "abc", "second.mid"), ErrNotFound))

	require.NoError(t, store.Put(ctx, &models.AnalysisRecord{FileHash: "abc", Filename: "first.mid", Response: "{}"}))
	before, err := store.FindByFilename(ctx, "first.mid")
	require.NoError(t, err)

	require.NoError(t, store.Rename(ctx, "abc", "second.mid"))

	record, err := store.FindByFilename(ctx, "second.mid")
	require.NoError(t, err)
	assert.Equal(t, "abc", record.FileHash)
	assert.False(t, record.UpdatedAt.Before(before.UpdatedAt))

	_, err = store.FindByFilename(ctx, "first.mid")
	assert.True(t, errors.Is(err, ErrNotFound))
}
