package analysis

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

const (
	// DefaultKeyConfidenceThreshold is the minimum correlation for a key to be reported.
	DefaultKeyConfidenceThreshold = 0.70

	// Plausible tempo window in BPM.
	minPlausibleBPM = 30.0
	maxPlausibleBPM = 280.0

	previewLength = 4

	// Events per bar below which density is low, and below which it is medium.
	lowDensityLimit    = 8.0
	mediumDensityLimit = 20.0
)

// Config tunes the analyzer.
type Config struct {
	// Locale selects the phrasebook: "en" or "pt-BR".
	Locale string

	// KeyConfidenceThreshold is the correlation a key needs to be reported.
	KeyConfidenceThreshold float64

	// SuspiciousMeters are replaced by 4/4 for downstream computation, with
	// a caveat in the narrative.
	SuspiciousMeters []score.Meter
}

// DefaultConfig returns the English analyzer with a 0.70 key threshold and
// 1/4 and 2/4 treated as suspicious.
func DefaultConfig() Config {
	return Config{
		Locale:                 LocaleEnglish,
		KeyConfidenceThreshold: DefaultKeyConfidenceThreshold,
		SuspiciousMeters: []score.Meter{
			{Numerator: 1, Denominator: 4},
			{Numerator: 2, Denominator: 4},
		},
	}
}

// ParseMeterList parses a comma-separated list such as "1/4,2/4".
func ParseMeterList(s string) ([]score.Meter, error) {
	var meters []score.Meter
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		m, err := score.ParseMeter(item)
		if err != nil {
			return nil, fmt.Errorf("invalid suspicious meter list: %w", err)
		}
		meters = append(meters, m)
	}
	return meters, nil
}

func (c Config) isSuspicious(m score.Meter) bool {
	for _, s := range c.SuspiciousMeters {
		if s == m {
			return true
		}
	}
	return false
}
