package llm

import (
	"context"
)

// Provider defines the interface for LLM providers.
// Providers must honour OutputSchema so the continuation can be decoded as JSON.
type Provider interface {
	// Generate sends the request and returns the raw model output.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model         string
	InputArray    []map[string]any
	ReasoningMode string
	SystemPrompt  string
	// Temperature is sent only when positive.
	Temperature float64
	// Structured output schema
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Usage is the provider-neutral token accounting of one call.
// OutputTokens excludes ReasoningTokens.
type Usage struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens,omitempty"`
	TotalTokens     int64 `json:"total_tokens"`
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"` // Raw text output, decoded by the caller
	Usage     Usage  `json:"usage"`
	Model     string `json:"model"`
	Provider  string `json:"provider"`
}
