// Package cache stores upload responses by content hash so an identical
// file is analysed once, and keeps a log of continuation requests.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Conceptual-Machines/midi-insight-api/internal/models"
)

// ErrNotFound means no record exists for the hash
var ErrNotFound = errors.New("cache: not found")

// Hash returns the md5 content hash used as the cache key
func Hash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Store is the gorm-backed cache
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on an already migrated database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the record for hash and counts the hit
func (s *Store) Get(ctx context.Context, hash string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := s.db.WithContext(ctx).Where("file_hash = ?", hash).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&record).
		UpdateColumn("hit_count", gorm.Expr("hit_count + ?", 1)).Error; err != nil {
		return nil, fmt.Errorf("failed to count cache hit: %w", err)
	}
	record.HitCount++
	return &record, nil
}

// FindByFilename returns the most recent record uploaded under filename
func (s *Store) FindByFilename(ctx context.Context, filename string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := s.db.WithContext(ctx).
		Where("filename = ?", filename).
		Order("updated_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return &record, nil
}

// Put stores the record, replacing any earlier one with the same hash
func (s *Store) Put(ctx context.Context, record *models.AnalysisRecord) error {
	if record.FileHash == "" {
		return errors.New("cache: record has no file hash")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"filename", "response", "generated_file", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Rename records that hash was uploaded again as filename, so lookups by
// the latest filename find it.
func (s *Store) Rename(ctx context.Context, hash, filename string) error {
	result := s.db.WithContext(ctx).Model(&models.AnalysisRecord{}).
		Where("file_hash = ?", hash).
		Updates(map[string]any{"filename": filename, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update cache: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetGeneratedFile records the continuation file produced for hash
func (s *Store) SetGeneratedFile(ctx context.Context, hash, filename string) error {
	result := s.db.WithContext(ctx).Model(&models.AnalysisRecord{}).
		Where("file_hash = ?", hash).
		Update("generated_file", filename)
	if result.Error != nil {
		return fmt.Errorf("failed to update cache: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LogGeneration appends a continuation request to the generation log
func (s *Store) LogGeneration(ctx context.Context, entry *models.GenerationLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to log generation: %w", err)
	}
	return nil
}

// Stats summarises the cache for the metrics endpoint
type Stats struct {
	Records           int64   `json:"records"`
	Hits              int64   `json:"hits"`
	Generations       int64   `json:"generations"`
	FailedGenerations int64   `json:"failed_generations"`
	TotalTokens       int64   `json:"total_tokens"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
}

// Stats aggregates the cache and generation log
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	var stats Stats

	if err := db.Model(&models.AnalysisRecord{}).Count(&stats.Records).Error; err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	if err := db.Model(&models.AnalysisRecord{}).
		Select("COALESCE(SUM(hit_count), 0)").Scan(&stats.Hits).Error; err != nil {
		return nil, fmt.Errorf("failed to sum hits: %w", err)
	}
	if err := db.Model(&models.GenerationLog{}).Count(&stats.Generations).Error; err != nil {
		return nil, fmt.Errorf("failed to count generations: %w", err)
	}
	if err := db.Model(&models.GenerationLog{}).
		Where("success = ?", false).Count(&stats.FailedGenerations).Error; err != nil {
		return nil, fmt.Errorf("failed to count failed generations: %w", err)
	}

	var totals struct {
		Tokens int64
		Cost   float64
	}
	if err := db.Model(&models.GenerationLog{}).
		Select("COALESCE(SUM(total_tokens), 0) AS tokens, COALESCE(SUM(cost_usd), 0) AS cost").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum usage: %w", err)
	}
	stats.TotalTokens = totals.Tokens
	stats.TotalCostUSD = totals.Cost
	return &stats, nil
}
