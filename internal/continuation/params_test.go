package continuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults kept", DefaultParams(), DefaultParams()},
		{"in range", Params{LengthSeconds: 30, Temperature: 0.1}, Params{LengthSeconds: 30, Temperature: 0.1}},
		{"zero values reset", Params{}, DefaultParams()},
		{"too long", Params{LengthSeconds: 31, Temperature: 1}, Params{LengthSeconds: 8, Temperature: 1}},
		{"too hot", Params{LengthSeconds: 5, Temperature: 1.6}, Params{LengthSeconds: 5, Temperature: 0.6}},
		{"NaN", Params{LengthSeconds: math.NaN(), Temperature: math.NaN()}, DefaultParams()},
		{
			name: "other fields untouched",
			in:   Params{LengthSeconds: 0, Temperature: 0, Model: "gpt-4o", Provider: "openai", Humanize: true},
			want: Params{LengthSeconds: 8, Temperature: 0.6, Model: "gpt-4o", Provider: "openai", Humanize: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}
