package continuation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/midi-insight-api/internal/analysis"
	"github.com/Conceptual-Machines/midi-insight-api/internal/llm"
	"github.com/Conceptual-Machines/midi-insight-api/internal/logger"
	"github.com/Conceptual-Machines/midi-insight-api/internal/observability"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

var (
	ErrNothingToContinue = errors.New("continuation: score has no notes to continue")
	ErrGenerationFailed  = errors.New("continuation: generation failed")
	ErrInvalidResponse   = errors.New("continuation: model output is not a valid continuation")
)

// IsUpstreamFailure reports whether err came from the model rather than
// from the request or the server.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrGenerationFailed) ||
		errors.Is(err, ErrNoJSON) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrEmptyContinuation)
}

// ProviderSource resolves a provider for a model; *llm.ProviderFactory is one.
type ProviderSource interface {
	GetProvider(ctx context.Context, model, providerName string) (llm.Provider, error)
}

// Recorder receives generation metrics.
type Recorder interface {
	RecordTokenUsage(ctx context.Context, provider, model string, usage llm.Usage)
	RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool)
}

// ServiceConfig configures a Service. Zero fields take defaults.
type ServiceConfig struct {
	DefaultModel string
	PrimerLimit  int
	Recorder     Recorder
	Tracer       *observability.LangfuseClient
}

// Service produces continuations of analysed scores.
type Service struct {
	providers    ProviderSource
	defaultModel string
	primerLimit  int
	recorder     Recorder
	tracer       *observability.LangfuseClient
	rand         func() *rand.Rand
}

// Output is a rendered continuation.
type Output struct {
	MIDI         []byte
	Continuation *Continuation
	Model        string
	Provider     string
	Usage        llm.Usage
	Duration     time.Duration
}

// NewService creates a continuation service
func NewService(providers ProviderSource, cfg ServiceConfig) *Service {
	if cfg.PrimerLimit <= 0 {
		cfg.PrimerLimit = DefaultPrimerLimit
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.GetClient()
	}
	return &Service{
		providers:    providers,
		defaultModel: cfg.DefaultModel,
		primerLimit:  cfg.PrimerLimit,
		recorder:     cfg.Recorder,
		tracer:       cfg.Tracer,
		rand:         newRand,
	}
}

// Generate asks the model for a continuation of s and renders it as MIDI.
func (s *Service) Generate(ctx context.Context, sc *score.Score, res *analysis.Result, p Params) (*Output, error) {
	start := time.Now()
	p = p.Normalized()
	model := p.Model
	if model == "" {
		model = s.defaultModel
	}

	span := sentry.StartSpan(ctx, "continuation.generate")
	span.SetTag("model", model)
	defer span.Finish()
	ctx = span.Context()

	out, err := s.generate(ctx, sc, res, p, model)
	duration := time.Since(start)
	if s.recorder != nil {
		s.recorder.RecordGenerationDuration(ctx, duration, err == nil)
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		logger.Warn("Continuation failed", logger.Fields{
			"model":       model,
			"error":       err.Error(),
			"duration_ms": duration.Milliseconds(),
		})
		return nil, err
	}

	span.Status = sentry.SpanStatusOK
	out.Duration = duration
	logger.LogContinuationRequest(ctx, out.Model, duration, map[string]int64{
		"input_tokens":  out.Usage.InputTokens,
		"output_tokens": out.Usage.OutputTokens,
		"total_tokens":  out.Usage.TotalTokens,
	}, logger.Fields{
		"provider": out.Provider,
		"bytes":    len(out.MIDI),
		"skipped":  len(out.Continuation.Skipped),
	})
	return out, nil
}

func (s *Service) generate(ctx context.Context, sc *score.Score, res *analysis.Result, p Params, model string) (*Output, error) {
	right, left := SeparateHands(sc)
	if right == nil {
		return nil, ErrNothingToContinue
	}

	system, user, err := BuildPrompt(res, Primer(right, s.primerLimit), Primer(left, s.primerLimit), p)
	if err != nil {
		return nil, err
	}

	provider, err := s.providers.GetProvider(ctx, model, p.Provider)
	if err != nil {
		return nil, err
	}

	request := &llm.GenerationRequest{
		Model:        model,
		SystemPrompt: system,
		InputArray:   []map[string]any{{"role": "user", "content": user}},
		Temperature:  p.Temperature,
		OutputSchema: llm.ContinuationOutputSchema(),
	}

	trace := s.tracer.StartTrace(ctx, "midi-continuation", map[string]interface{}{
		"length_seconds": p.LengthSeconds,
		"humanize":       p.Humanize,
	})
	defer trace.Finish()
	gen := trace.Generation("llm.generate", map[string]interface{}{"provider": provider.Name()})
	defer gen.Finish()

	resp, err := provider.Generate(ctx, request)
	if err != nil {
		gen.SetLevel("ERROR")
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	gen.LogResponse(model, request.InputArray, resp, nil)
	if s.recorder != nil {
		s.recorder.RecordTokenUsage(ctx, provider.Name(), model, resp.Usage)
	}

	raw, err := ExtractJSON(resp.RawOutput)
	if err != nil {
		return nil, err
	}
	parsed, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	cont, err := Decode(parsed)
	if err != nil {
		return nil, err
	}
	for _, skipped := range cont.Skipped {
		logger.Debug("Skipped continuation event", logger.Fields{"error": skipped.Error()})
	}

	parts := cont.Parts()
	Normalize(parts)
	if p.Humanize {
		Humanize(parts, s.rand())
	}

	bpm, meter := TempoAndMeter(res)
	data, err := Render(parts, bpm, meter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	return &Output{
		MIDI:         data,
		Continuation: cont,
		Model:        model,
		Provider:     provider.Name(),
		Usage:        resp.Usage,
	}, nil
}
