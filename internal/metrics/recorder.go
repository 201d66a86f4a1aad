package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Conceptual-Machines/midi-insight-api/internal/llm"
)

// Recorder fans metrics out to Sentry and CloudWatch and keeps in-process
// counters for the metrics endpoint. A nil CloudWatch client is allowed.
type Recorder struct {
	sentry *SentryMetrics
	cloud  *Client

	analyses        atomic.Int64
	analysisFailure atomic.Int64
	generations     atomic.Int64
	generationFails atomic.Int64
	tokens          atomic.Int64
}

// NewRecorder creates a recorder
func NewRecorder(sentryMetrics *SentryMetrics, cloud *Client) *Recorder {
	if sentryMetrics == nil {
		sentryMetrics = NewSentryMetrics()
	}
	return &Recorder{sentry: sentryMetrics, cloud: cloud}
}

// Snapshot is a point-in-time copy of the in-process counters.
type Snapshot struct {
	Analyses             int64 `json:"analyses"`
	AnalysesWithFailures int64 `json:"analyses_with_failures"`
	Generations          int64 `json:"generations"`
	GenerationFailures   int64 `json:"generation_failures"`
	Tokens               int64 `json:"tokens"`
}

func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	if r.cloud != nil {
		r.cloud.RecordAPIRequest(endpoint, statusCode, duration)
	}
}

func (r *Recorder) RecordAnalysis(ctx context.Context, duration time.Duration, failedStages int) {
	r.analyses.Add(1)
	if failedStages > 0 {
		r.analysisFailure.Add(1)
	}
	r.sentry.RecordAnalysis(ctx, duration, failedStages)
	if r.cloud != nil {
		r.cloud.RecordAnalysis(duration, failedStages)
	}
}

func (r *Recorder) RecordTokenUsage(ctx context.Context, provider, model string, usage llm.Usage) {
	r.tokens.Add(usage.TotalTokens)
	r.sentry.RecordTokenUsage(ctx, provider, model, usage)
	if r.cloud != nil {
		r.cloud.RecordTokenUsage(provider, model, usage)
	}
}

func (r *Recorder) RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool) {
	r.generations.Add(1)
	if !success {
		r.generationFails.Add(1)
	}
	r.sentry.RecordGenerationDuration(ctx, duration, success)
	if r.cloud != nil {
		r.cloud.RecordGenerationDuration(duration, success)
	}
}

// Snapshot returns the current counter values
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		Analyses:             r.analyses.Load(),
		AnalysesWithFailures: r.analysisFailure.Load(),
		Generations:          r.generations.Load(),
		GenerationFailures:   r.generationFails.Load(),
		Tokens:               r.tokens.Load(),
	}
}
