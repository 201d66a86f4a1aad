package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	db                *gorm.DB
	continuationReady bool
}

func NewHealthHandler(db *gorm.DB, continuationReady bool) *HealthHandler {
	return &HealthHandler{db: db, continuationReady: continuationReady}
}

// HealthCheck returns the health status of the API. The database is
// pinged; a failed ping answers 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	status := http.StatusOK

	if h.db != nil {
		dbStatus = "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			dbStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	continuationStatus := "disabled"
	if h.continuationReady {
		continuationStatus = "enabled"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"database":     dbStatus,
		"continuation": continuationStatus,
	})
}
