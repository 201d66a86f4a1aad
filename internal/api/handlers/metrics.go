package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/midi-insight-api/internal/cache"
	"github.com/Conceptual-Machines/midi-insight-api/internal/logger"
	"github.com/Conceptual-Machines/midi-insight-api/internal/metrics"
)

type MetricsHandler struct {
	startTime time.Time
	version   string
	recorder  *metrics.Recorder
	store     *cache.Store
}

func NewMetricsHandler(version string, recorder *metrics.Recorder, store *cache.Store) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		recorder:  recorder,
		store:     store,
	}
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
)

// formatUptime formats the uptime duration with seconds rounded to 2 decimal places
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % secondsPerMinute
	seconds := d.Seconds() - float64(hours*secondsPerHour) - float64(minutes*secondsPerMinute)

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%.2fs", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm%.2fs", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", seconds)
}

type MetricsResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	StartTime string            `json:"start_time"`
	System    SystemMetrics     `json:"system"`
	Counters  *metrics.Snapshot `json:"counters,omitempty"`
	Cache     *cache.Stats      `json:"cache,omitempty"`
}

type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
	MemTotal     string `json:"mem_total"`
	NumGC        uint32 `json:"num_gc"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := MetricsResponse{
		Status:    "healthy",
		Uptime:    formatUptime(time.Since(h.startTime)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		StartTime: h.startTime.UTC().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     humanize.IBytes(m.Alloc),
			MemTotal:     humanize.IBytes(m.TotalAlloc),
			NumGC:        m.NumGC,
		},
	}

	if h.recorder != nil {
		snapshot := h.recorder.Snapshot()
		resp.Counters = &snapshot
	}
	if h.store != nil {
		stats, err := h.store.Stats(c.Request.Context())
		if err != nil {
			logger.Warn("Failed to read cache stats", logger.Fields{"error": err.Error()})
		} else {
			resp.Cache = stats
		}
	}

	c.JSON(http.StatusOK, resp)
}
