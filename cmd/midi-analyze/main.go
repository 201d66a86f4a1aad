package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/midi-insight-api/internal/analysis"
	"github.com/Conceptual-Machines/midi-insight-api/internal/config"
	"github.com/Conceptual-Machines/midi-insight-api/internal/continuation"
	"github.com/Conceptual-Machines/midi-insight-api/internal/llm"
	"github.com/Conceptual-Machines/midi-insight-api/internal/midifile"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type analyzeOptions struct {
	locale           string
	keyThreshold     float64
	suspiciousMeters string
	pretty           bool
	showWarnings     bool

	continueOut string
	length      float64
	temperature float64
	model       string
	provider    string
	humanize    bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "midi-analyze",
		Short: "Describe MIDI files and continue them with an LLM",
		Long: `midi-analyze runs the same analysis as the HTTP service on local files.

Pipeline: SMF validation → parse → analysis stages → narrative (→ continuation)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newAnalyzeCmd(), newValidateCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.mid>",
		Short: "Analyze a MIDI file and print the result as JSON",
		Long: `Analyze a MIDI file and print the analysis record as JSON.

Examples:
  midi-analyze analyze song.mid
  midi-analyze analyze song.mid --locale pt-BR --pretty
  midi-analyze analyze song.mid --continue out.mid --length 12 --humanize`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	defaults := analysis.DefaultConfig()
	params := continuation.DefaultParams()
	f := cmd.Flags()
	f.StringVarP(&opts.locale, "locale", "l", defaults.Locale, "Narrative language (en, pt-BR)")
	f.Float64Var(&opts.keyThreshold, "key-threshold", defaults.KeyConfidenceThreshold, "Minimum key confidence")
	f.StringVar(&opts.suspiciousMeters, "suspicious-meters", "1/4,2/4", "Meters replaced by 4/4")
	f.BoolVarP(&opts.pretty, "pretty", "p", false, "Indent the JSON output")
	f.BoolVar(&opts.showWarnings, "warnings", false, "Log recoverable MIDI parse warnings")
	f.StringVarP(&opts.continueOut, "continue", "c", "", "Generate a continuation and write it to this file")
	f.Float64Var(&opts.length, "length", params.LengthSeconds, "Continuation length in seconds (1-30)")
	f.Float64Var(&opts.temperature, "temperature", params.Temperature, "Sampling temperature (0.1-1.5)")
	f.StringVar(&opts.model, "model", "", "LLM model (default: CONTINUATION_MODEL)")
	f.StringVar(&opts.provider, "provider", "", "LLM provider (openai, gemini)")
	f.BoolVar(&opts.humanize, "humanize", false, "Add small timing and velocity variations")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.mid>",
		Short: "Check that a file is a well-formed Standard MIDI File",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := midifile.Validate(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%s, %d tracks, %s events, %d ticks per quarter)\n",
				filepath.Base(args[0]), humanize.IBytes(uint64(len(data))),
				info.Tracks, humanize.Comma(int64(info.Events)), info.TicksPerQuarter)
			return nil
		},
	}
}

func runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := midifile.Validate(data); err != nil {
		return err
	}

	meters, err := analysis.ParseMeterList(opts.suspiciousMeters)
	if err != nil {
		return err
	}
	analyzer := analysis.New(analysis.Config{
		Locale:                 opts.locale,
		KeyConfidenceThreshold: opts.keyThreshold,
		SuspiciousMeters:       meters,
	})

	start := time.Now()
	result, parsed, analyzeErr := analyzer.AnalyzeMIDI(ctx, data, midifile.ParseOptions{
		SuppressWarnings: !opts.showWarnings,
	})
	fmt.Fprintf(cmd.ErrOrStderr(), "Analyzed %s (%s) in %v\n",
		filepath.Base(path), humanize.IBytes(uint64(len(data))), time.Since(start).Round(time.Millisecond))

	if err := writeJSON(cmd.OutOrStdout(), result, opts.pretty); err != nil {
		return err
	}
	if analyzeErr != nil {
		return analyzeErr
	}
	if opts.continueOut == "" {
		return nil
	}

	_ = godotenv.Load()
	cfg := config.Load()
	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	if !factory.Configured() {
		return errors.New("no LLM provider configured: set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	svc := continuation.NewService(factory, continuation.ServiceConfig{DefaultModel: cfg.ContinuationModel})

	out, err := svc.Generate(ctx, parsed, result, continuation.Params{
		LengthSeconds: opts.length,
		Temperature:   opts.temperature,
		Model:         opts.model,
		Provider:      opts.provider,
		Humanize:      opts.humanize,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.continueOut, out.MIDI, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s, %s tokens, %s/%s)\n",
		opts.continueOut, humanize.IBytes(uint64(len(out.MIDI))),
		humanize.Comma(out.Usage.TotalTokens), out.Provider, out.Model)
	return nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
