package api

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/midi-insight-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/midi-insight-api/internal/api/middleware"
	"github.com/Conceptual-Machines/midi-insight-api/internal/cache"
	"github.com/Conceptual-Machines/midi-insight-api/internal/config"
	"github.com/Conceptual-Machines/midi-insight-api/internal/continuation"
	"github.com/Conceptual-Machines/midi-insight-api/internal/llm"
	"github.com/Conceptual-Machines/midi-insight-api/internal/metrics"
)

// SetupRouter wires the service. db may be nil, in which case uploads are
// not cached.
func SetupRouter(ctx context.Context, db *gorm.DB, cfg *config.Config, version string) *gin.Engine {
	cloud, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
		cloud = nil
	}
	recorder := metrics.NewRecorder(metrics.NewSentryMetrics(), cloud)

	var store *cache.Store
	if db != nil {
		store = cache.NewStore(db)
	}

	var generator handlers.Generator
	factory := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	if factory.Configured() {
		generator = continuation.NewService(factory, continuation.ServiceConfig{
			DefaultModel: cfg.ContinuationModel,
			Recorder:     recorder,
		})
	} else {
		log.Println("⚠️  No LLM provider configured (OPENAI_API_KEY / GEMINI_API_KEY); continuations disabled")
	}

	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(recorder))

	router.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))

	healthHandler := handlers.NewHealthHandler(db, generator != nil)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(version, recorder, store)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	midiHandler := handlers.NewMIDIHandler(cfg, store, generator, recorder)
	router.POST("/upload_midi", apimiddleware.BodyLimit(cfg.MaxUploadBytes), midiHandler.UploadMIDI)
	router.POST("/generate_continuation", apimiddleware.BodyLimit(cfg.MaxUploadBytes), midiHandler.GenerateContinuation)
	router.GET("/generated/:filename", midiHandler.ServeGenerated)

	return router
}
