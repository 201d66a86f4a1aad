package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Conceptual-Machines/midi-insight-api/internal/analysis"
	"github.com/Conceptual-Machines/midi-insight-api/internal/api/middleware"
	"github.com/Conceptual-Machines/midi-insight-api/internal/cache"
	"github.com/Conceptual-Machines/midi-insight-api/internal/config"
	"github.com/Conceptual-Machines/midi-insight-api/internal/continuation"
	"github.com/Conceptual-Machines/midi-insight-api/internal/llm"
	"github.com/Conceptual-Machines/midi-insight-api/internal/logger"
	"github.com/Conceptual-Machines/midi-insight-api/internal/metrics"
	"github.com/Conceptual-Machines/midi-insight-api/internal/midifile"
	"github.com/Conceptual-Machines/midi-insight-api/internal/models"
	"github.com/Conceptual-Machines/midi-insight-api/internal/observability"
	"github.com/Conceptual-Machines/midi-insight-api/internal/score"
)

const (
	formFieldMIDI     = "midi_file"
	generatedRoute    = "/generated/"
	midiContentType   = "audio/midi"
	statusSuccess     = "success"
	statusError       = "error"
	continuationAlias = "continuation_"
)

var md5Hex = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Generator produces continuations; *continuation.Service is one.
type Generator interface {
	Generate(ctx context.Context, s *score.Score, res *analysis.Result, p continuation.Params) (*continuation.Output, error)
}

// MIDIHandler serves uploads, continuations and generated files.
type MIDIHandler struct {
	cfg       *config.Config
	analyzer  *analysis.Analyzer
	parseOpts midifile.ParseOptions
	store     *cache.Store
	generator Generator
	recorder  *metrics.Recorder
}

// NewMIDIHandler creates the handler. generator may be nil when no LLM
// provider is configured; continuation requests then answer 503.
func NewMIDIHandler(cfg *config.Config, store *cache.Store, generator Generator, recorder *metrics.Recorder) *MIDIHandler {
	return &MIDIHandler{
		cfg:      cfg,
		analyzer: NewAnalyzer(cfg),
		parseOpts: midifile.ParseOptions{
			SuppressWarnings:      cfg.MIDISuppressWarnings,
			AutoDownloadResources: cfg.MIDIAutoDownload,
		},
		store:     store,
		generator: generator,
		recorder:  recorder,
	}
}

// NewAnalyzer builds an analyzer from the service configuration. An
// unparsable SUSPICIOUS_METERS falls back to the default list.
func NewAnalyzer(cfg *config.Config) *analysis.Analyzer {
	acfg := analysis.Config{
		Locale:                 cfg.AnalysisLocale,
		KeyConfidenceThreshold: cfg.KeyConfidenceThreshold,
	}
	meters, err := analysis.ParseMeterList(cfg.SuspiciousMeters)
	if err != nil {
		logger.Warn("Ignoring SUSPICIOUS_METERS", logger.Fields{"error": err.Error()})
	} else {
		acfg.SuspiciousMeters = meters
	}
	return analysis.New(acfg)
}

// UploadResponse is the body of a successful upload. It is also what the
// cache stores.
type UploadResponse struct {
	Status           string           `json:"status"`
	Filename         string           `json:"filename"`
	FileHash         string           `json:"file_hash"`
	Message          string           `json:"message"`
	Analysis         *analysis.Result `json:"analysis"`
	GeneratedMIDIURL *string          `json:"generated_midi_url"`
	GenerationError  string           `json:"generation_error,omitempty"`
	Cached           bool             `json:"cached"`
}

func respondError(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"status": statusError, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

// UploadMIDI validates, analyses and caches an uploaded MIDI file.
func (h *MIDIHandler) UploadMIDI(c *gin.Context) {
	header, err := c.FormFile(formFieldMIDI)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, middleware.TooLargeMessage(h.cfg.MaxUploadBytes), nil)
			return
		}
		respondError(c, http.StatusBadRequest, "No file uploaded.", nil)
		return
	}

	filename := filepath.Base(header.Filename)
	if header.Filename == "" || filename == "." || filename == string(filepath.Separator) {
		respondError(c, http.StatusBadRequest, "No file selected.", nil)
		return
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".mid" && ext != ".midi" {
		respondError(c, http.StatusBadRequest, "Invalid file extension. Use .mid or .midi.", gin.H{"filename": filename})
		return
	}

	data, err := readUpload(header)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, middleware.TooLargeMessage(h.cfg.MaxUploadBytes), nil)
			return
		}
		respondError(c, http.StatusBadRequest, "Could not read the uploaded file.", gin.H{"filename": filename})
		return
	}

	if _, err := midifile.Validate(data); err != nil {
		logger.Warn("Rejected invalid MIDI upload", logger.Fields{"filename": filename, "error": err.Error()})
		respondError(c, http.StatusBadRequest, "The file does not look like a valid MIDI file.", gin.H{"filename": filename})
		return
	}

	ctx := c.Request.Context()
	hash := cache.Hash(data)
	c.Set("file_hash", hash)

	if err := h.saveUpload(hash, data); err != nil {
		logger.Error("Failed to store upload", err, logger.WithContext(c))
		respondError(c, http.StatusInternalServerError, "Failed to store the uploaded file.", gin.H{"filename": filename})
		return
	}

	if cached, ok := h.cachedResponse(ctx, hash, filename); ok {
		cached.Filename = filename
		cached.Cached = true
		c.JSON(http.StatusOK, cached)
		return
	}

	start := time.Now()
	result, parsed, err := h.analyzer.AnalyzeMIDI(ctx, data, h.parseOpts)
	h.recordAnalysis(ctx, filename, time.Since(start), result)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Failed to analyse the file.", gin.H{
			"filename": filename,
			"analysis": result,
		})
		return
	}

	resp := &UploadResponse{
		Status:   statusSuccess,
		Filename: filename,
		FileHash: hash,
		Message:  "Analysis completed.",
		Analysis: result,
	}

	if h.cfg.ContinuationOnUpload && h.generator != nil {
		name := continuationAlias + hash + ".mid"
		if _, err := h.generate(ctx, hash, parsed, result, continuation.DefaultParams(), name); err != nil {
			resp.GenerationError = generationMessage(err)
		} else {
			url := generatedRoute + name
			resp.GeneratedMIDIURL = &url
			resp.Message = "Analysis and continuation completed."
		}
	}

	h.storeResponse(ctx, resp)
	c.JSON(http.StatusOK, resp)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// cachedResponse returns the stored analysis of hash and moves the record to
// the filename it was uploaded under this time.
func (h *MIDIHandler) cachedResponse(ctx context.Context, hash, filename string) (*UploadResponse, bool) {
	if h.store == nil {
		return nil, false
	}
	record, err := h.store.Get(ctx, hash)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("Cache lookup failed", logger.Fields{"file_hash": hash, "error": err.Error()})
		}
		return nil, false
	}
	var resp UploadResponse
	if err := json.Unmarshal([]byte(record.Response), &resp); err != nil {
		logger.Warn("Discarding unreadable cache entry", logger.Fields{"file_hash": hash, "error": err.Error()})
		return nil, false
	}
	if err := h.store.Rename(ctx, hash, filename); err != nil {
		logger.Warn("Failed to refresh cached filename", logger.Fields{"file_hash": hash, "error": err.Error()})
	}
	return &resp, true
}

func (h *MIDIHandler) storeResponse(ctx context.Context, resp *UploadResponse) {
	if h.store == nil {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Warn("Failed to encode response for cache", logger.Fields{"error": err.Error()})
		return
	}
	record := &models.AnalysisRecord{
		FileHash: resp.FileHash,
		Filename: resp.Filename,
		Response: string(body),
	}
	if resp.GeneratedMIDIURL != nil {
		record.GeneratedFile = filepath.Base(*resp.GeneratedMIDIURL)
	}
	if err := h.store.Put(ctx, record); err != nil {
		logger.Warn("Failed to cache response", logger.Fields{"file_hash": resp.FileHash, "error": err.Error()})
	}
}

func (h *MIDIHandler) saveUpload(hash string, data []byte) error {
	if err := os.MkdirAll(h.cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return os.WriteFile(h.uploadPath(hash), data, 0o644)
}

func (h *MIDIHandler) uploadPath(hash string) string {
	return filepath.Join(h.cfg.UploadsDir, hash+".mid")
}

func (h *MIDIHandler) recordAnalysis(ctx context.Context, filename string, d time.Duration, res *analysis.Result) {
	var failed []string
	for _, err := range res.Failures() {
		var stageErr *analysis.StageError
		if errors.As(err, &stageErr) {
			failed = append(failed, stageErr.Stage)
		} else {
			failed = append(failed, err.Error())
		}
	}
	logger.LogAnalysis(ctx, filename, d, failed, nil)
	if h.recorder != nil {
		h.recorder.RecordAnalysis(ctx, d, len(failed))
	}
}

// ContinuationRequest is the body of POST /generate_continuation. Either
// FileHash or Filename identifies a previous upload.
type ContinuationRequest struct {
	FileHash      string     `json:"file_hash"`
	Filename      string     `json:"filename"`
	LengthSeconds *flexFloat `json:"length_seconds"`
	Temperature   *flexFloat `json:"temperature"`
	Model         string     `json:"model"`
	Provider      string     `json:"provider"`
	Humanize      bool       `json:"humanize"`
}

func (r ContinuationRequest) params() continuation.Params {
	p := continuation.DefaultParams()
	if r.LengthSeconds != nil {
		p.LengthSeconds = float64(*r.LengthSeconds)
	}
	if r.Temperature != nil {
		p.Temperature = float64(*r.Temperature)
	}
	p.Model = r.Model
	p.Provider = r.Provider
	p.Humanize = r.Humanize
	return p.Normalized()
}

// GenerateContinuation generates a continuation for a previously uploaded file.
func (h *MIDIHandler) GenerateContinuation(c *gin.Context) {
	var req ContinuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid generation parameters (length_seconds and temperature must be numbers).", nil)
		return
	}
	if req.FileHash == "" && req.Filename == "" {
		respondError(c, http.StatusBadRequest, "Provide file_hash or filename.", nil)
		return
	}

	ctx := c.Request.Context()
	hash, ok := h.resolveUpload(ctx, req)
	if !ok {
		respondError(c, http.StatusNotFound, "The original MIDI file was not found on the server.", nil)
		return
	}
	c.Set("file_hash", hash)

	if h.generator == nil {
		respondError(c, http.StatusServiceUnavailable, "Continuation generation is not available (no LLM provider configured).", nil)
		return
	}

	data, err := os.ReadFile(h.uploadPath(hash))
	if err != nil {
		respondError(c, http.StatusNotFound, "The original MIDI file was not found on the server.", nil)
		return
	}

	result, parsed, err := h.analyzer.AnalyzeMIDI(ctx, data, h.parseOpts)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Failed to read the original MIDI file.", gin.H{"analysis": result})
		return
	}

	name := fmt.Sprintf("%s%s_%s.mid", continuationAlias, hash, uuid.New().String()[:8])
	if _, err := h.generate(ctx, hash, parsed, result, req.params(), name); err != nil {
		respondError(c, generationStatus(err), generationMessage(err), nil)
		return
	}

	if h.store != nil {
		if err := h.store.SetGeneratedFile(ctx, hash, name); err != nil && !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("Failed to record generated file", logger.Fields{"file_hash": hash, "error": err.Error()})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        statusSuccess,
		"message":       "Continuation generated.",
		"midi_filename": name,
		"midi_url":      generatedRoute + name,
	})
}

// resolveUpload maps the request to the hash of a stored upload. Only the
// base name of a given filename is used.
func (h *MIDIHandler) resolveUpload(ctx context.Context, req ContinuationRequest) (string, bool) {
	candidates := []string{}
	if req.FileHash != "" {
		candidates = append(candidates, strings.ToLower(filepath.Base(req.FileHash)))
	}
	if req.Filename != "" {
		base := filepath.Base(req.Filename)
		candidates = append(candidates, strings.TrimSuffix(strings.ToLower(base), filepath.Ext(base)))
		if h.store != nil {
			if record, err := h.store.FindByFilename(ctx, base); err == nil {
				candidates = append(candidates, record.FileHash)
			}
		}
	}

	for _, hash := range candidates {
		if !md5Hex.MatchString(hash) {
			continue
		}
		if _, err := os.Stat(h.uploadPath(hash)); err == nil {
			return hash, true
		}
	}
	return "", false
}

// generate runs the model, writes the MIDI under GeneratedDir and logs the
// attempt.
func (h *MIDIHandler) generate(ctx context.Context, hash string, s *score.Score, res *analysis.Result, p continuation.Params, name string) (*continuation.Output, error) {
	start := time.Now()
	out, err := h.generator.Generate(ctx, s, res, p)
	if err == nil {
		err = h.writeGenerated(name, out.MIDI)
	}

	entry := &models.GenerationLog{
		FileHash:   hash,
		Model:      p.Model,
		Provider:   p.Provider,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if entry.Model == "" {
		entry.Model = h.cfg.ContinuationModel
	}
	if out != nil {
		entry.Model = out.Model
		entry.Provider = out.Provider
		entry.InputTokens = out.Usage.InputTokens
		entry.OutputTokens = out.Usage.OutputTokens
		entry.ReasoningTokens = out.Usage.ReasoningTokens
		entry.TotalTokens = out.Usage.TotalTokens
		entry.CostUSD = observability.CalculateCost(out.Model, out.Usage)
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.MIDIFilename = name
	}
	if h.store != nil {
		if logErr := h.store.LogGeneration(ctx, entry); logErr != nil {
			logger.Warn("Failed to log generation", logger.Fields{"file_hash": hash, "error": logErr.Error()})
		}
	}

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *MIDIHandler) writeGenerated(name string, data []byte) error {
	if err := os.MkdirAll(h.cfg.GeneratedDir, 0o755); err != nil {
		return fmt.Errorf("failed to create generated dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.cfg.GeneratedDir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to save generated MIDI: %w", err)
	}
	return nil
}

func generationStatus(err error) int {
	switch {
	case errors.Is(err, llm.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, continuation.ErrNothingToContinue):
		return http.StatusUnprocessableEntity
	case continuation.IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func generationMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrProviderNotConfigured):
		return "The requested LLM provider is not configured."
	case errors.Is(err, continuation.ErrNothingToContinue):
		return "The file has no notes to continue."
	case continuation.IsUpstreamFailure(err):
		return fmt.Sprintf("Continuation generation failed: %v", err)
	default:
		return "Failed to save the generated MIDI file."
	}
}

// ServeGenerated streams a generated MIDI file.
func (h *MIDIHandler) ServeGenerated(c *gin.Context) {
	name := filepath.Base(c.Param("filename"))
	if !strings.HasPrefix(name, continuationAlias) || filepath.Ext(name) != ".mid" {
		respondError(c, http.StatusNotFound, "File not found.", nil)
		return
	}
	path := filepath.Join(h.cfg.GeneratedDir, name)
	if _, err := os.Stat(path); err != nil {
		respondError(c, http.StatusNotFound, "File not found.", nil)
		return
	}
	c.Header("Content-Type", midiContentType)
	c.FileAttachment(path, name)
}
