// Package analysis turns a parsed MIDI document into a descriptive record:
// tempo, key, meter, size, range, harmony and rhythm, plus a narrative
// paragraph built from whatever could be determined.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/midi-insight-api/internal/logger"
	"github.com/Conceptual-Machines/midi-insight-api/internal/midifile"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
	"github.com/Conceptual-Machines/midi-insight-api/internal/theory"
)

// Analyzer runs the analysis stages. It is safe for concurrent use.
type Analyzer struct {
	cfg  Config
	book *Phrasebook
}

// New creates an Analyzer. Zero fields of cfg take their defaults.
func New(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.Locale == "" {
		cfg.Locale = def.Locale
	}
	if cfg.KeyConfidenceThreshold <= 0 {
		cfg.KeyConfidenceThreshold = def.KeyConfidenceThreshold
	}
	if cfg.SuspiciousMeters == nil {
		cfg.SuspiciousMeters = def.SuspiciousMeters
	}
	return &Analyzer{cfg: cfg, book: PhrasebookFor(cfg.Locale)}
}

// Phrasebook returns the phrasebook the analyzer writes with.
func (a *Analyzer) Phrasebook() *Phrasebook {
	return a.book
}

// pass carries one analysis run: the document, the record being filled in
// and the facts later stages and the narrative depend on.
type pass struct {
	score *score.Score
	res   *Result

	key        *theory.Key // set only when confident
	meter      score.Meter // effective meter after overrides
	suspicious bool
	bars       int
	noNotes    bool
	noPattern  bool
}

type stage struct {
	name string
	run  func(*pass) error
}

// Analyze describes s. It never fails: stages that cannot complete leave
// their fields at a sentinel and are reported by Result.Failures. The
// document is not modified.
func (a *Analyzer) Analyze(ctx context.Context, s *score.Score) *Result {
	span := sentry.StartSpan(ctx, "analysis.run")
	defer span.Finish()
	started := time.Now()

	if s == nil || len(s.NotesAndRests()) == 0 {
		res := newResult(Unknown)
		res.DeclaredKey = None
		res.FinalChordAnalysis = None
		res.FinalMelodyAnalysis = None
		res.NarrativeText = a.book.Empty
		res.failures = []error{ErrEmptyScore}
		span.SetTag("empty", "true")
		return res
	}

	p := &pass{score: s, res: newResult(Unknown)}
	for _, st := range a.stages() {
		if err := a.runStage(span.Context(), p, st); err != nil {
			p.res.failures = append(p.res.failures, err)
			logger.Warn("Analysis stage failed", logger.Fields{
				"stage": st.name,
				"error": err.Error(),
			})
		}
	}
	p.res.NarrativeText = a.narrate(p)

	span.SetData("duration_ms", time.Since(started).Milliseconds())
	span.SetData("failed_stages", len(p.res.failures))
	return p.res
}

func (a *Analyzer) runStage(ctx context.Context, p *pass, st stage) (err error) {
	span := sentry.StartSpan(ctx, "analysis.stage")
	span.Description = st.name
	defer span.Finish()

	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: st.name, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
		}
	}()

	if err := st.run(p); err != nil {
		return &StageError{Stage: st.name, Err: err}
	}
	return nil
}

// AnalyzeMIDI parses raw SMF bytes and analyzes them. When parsing fails it
// returns the error-sentinel record together with an error wrapping
// ErrParseFailure.
func (a *Analyzer) AnalyzeMIDI(ctx context.Context, data []byte, opts midifile.ParseOptions) (*Result, *score.Score, error) {
	s, err := midifile.Parse(data, opts)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrParseFailure, err)
		return a.FailureResult(err), nil, err
	}
	return a.Analyze(ctx, s), s, nil
}

// FailureResult is the record reported when a document could not be parsed:
// every field holds the error sentinel and the narrative names the error.
func (a *Analyzer) FailureResult(err error) *Result {
	res := newResult(Failed)
	res.NarrativeText = fmt.Sprintf(a.book.Failure, err)
	res.failures = []error{err}
	return res
}

func roundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}
