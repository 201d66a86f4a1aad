package continuation

import "math"

const (
	DefaultLengthSeconds = 8.0
	MinLengthSeconds     = 1.0
	MaxLengthSeconds     = 30.0

	DefaultTemperature = 0.6
	MinTemperature     = 0.1
	MaxTemperature     = 1.5

	// Bounds of the bar count requested from the model.
	DefaultMinBars = 4
	DefaultMaxBars = 8
)

// Params are the caller's knobs for one continuation.
type Params struct {
	LengthSeconds float64 `json:"length_seconds"`
	Temperature   float64 `json:"temperature"`
	Model         string  `json:"model,omitempty"`
	Provider      string  `json:"provider,omitempty"`
	Humanize      bool    `json:"humanize"`
}

// DefaultParams returns the parameters used when the caller gives none.
func DefaultParams() Params {
	return Params{LengthSeconds: DefaultLengthSeconds, Temperature: DefaultTemperature}
}

// Normalized returns p with out-of-range values reset to their defaults.
func (p Params) Normalized() Params {
	if math.IsNaN(p.LengthSeconds) || p.LengthSeconds < MinLengthSeconds || p.LengthSeconds > MaxLengthSeconds {
		p.LengthSeconds = DefaultLengthSeconds
	}
	if math.IsNaN(p.Temperature) || p.Temperature < MinTemperature || p.Temperature > MaxTemperature {
		p.Temperature = DefaultTemperature
	}
	return p
}
