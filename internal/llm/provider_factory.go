package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrProviderNotConfigured is returned when the selected provider has no API key.
var ErrProviderNotConfigured = errors.New("llm provider not configured")

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	openaiAPIKey string
	geminiAPIKey string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(openaiAPIKey, geminiAPIKey string) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
	}
}

// Configured reports whether at least one provider has credentials.
func (f *ProviderFactory) Configured() bool {
	return f != nil && (f.openaiAPIKey != "" || f.geminiAPIKey != "")
}

// GetProvider returns the appropriate provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	// If provider is explicitly specified, use that
	if providerName != "" {
		return f.getProviderByName(ctx, providerName)
	}

	// Otherwise, infer from model name
	return f.getProviderByModel(ctx, model)
}

// getProviderByName creates a provider by explicit name
func (f *ProviderFactory) getProviderByName(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case ProviderOpenAI:
		return f.openai()
	case ProviderGemini:
		return f.gemini(ctx)
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: openai, gemini)", providerName)
	}
}

// getProviderByModel infers provider from model name
func (f *ProviderFactory) getProviderByModel(ctx context.Context, model string) (Provider, error) {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "gemini-"):
		return f.gemini(ctx)
	case strings.HasPrefix(modelLower, "gpt-"), strings.HasPrefix(modelLower, "o"):
		return f.openai()
	}

	// Unknown models go to whichever provider has a key, Gemini first
	if f.geminiAPIKey != "" {
		return f.gemini(ctx)
	}
	return f.openai()
}

func (f *ProviderFactory) openai() (Provider, error) {
	if f.openaiAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key not set", ErrProviderNotConfigured)
	}
	return NewOpenAIProvider(f.openaiAPIKey), nil
}

func (f *ProviderFactory) gemini(ctx context.Context) (Provider, error) {
	if f.geminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key not set", ErrProviderNotConfigured)
	}
	return NewGeminiProvider(ctx, f.geminiAPIKey)
}
