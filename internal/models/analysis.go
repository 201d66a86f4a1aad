package models

import (
	"time"
)

// AnalysisRecord caches the upload response of one MIDI file, keyed by the
// md5 of its bytes.
type AnalysisRecord struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	FileHash      string    `gorm:"uniqueIndex;size:32;not null" json:"file_hash"`
	Filename      string    `json:"filename"`
	Response      string    `gorm:"type:text;not null" json:"-"` // JSON body sent to the client
	GeneratedFile string    `json:"generated_file,omitempty"`
	HitCount      int       `gorm:"default:0;not null" json:"hit_count"`
}

// GenerationLog tracks one continuation request and its token consumption
type GenerationLog struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	FileHash        string    `gorm:"size:32;index" json:"file_hash"`
	Model           string    `gorm:"not null" json:"model"`
	Provider        string    `json:"provider"`
	InputTokens     int64     `gorm:"not null" json:"input_tokens"`
	OutputTokens    int64     `gorm:"not null" json:"output_tokens"`
	ReasoningTokens int64     `json:"reasoning_tokens"`
	TotalTokens     int64     `gorm:"not null" json:"total_tokens"`
	CostUSD         float64   `json:"cost_usd"`
	DurationMs      int64     `json:"duration_ms"`
	Success         bool      `gorm:"index" json:"success"`
	Error           string    `json:"error,omitempty"`
	MIDIFilename    string    `json:"midi_filename,omitempty"`
}
