// Package handler provides HTTP request handlers for the application.
package handler

import (
	"net/http"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/service"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/snapshot"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store     *snapshot.Store
	publisher *service.MessagePublisher
}

// NewHealthHandler creates a new HealthHandler instance. publisher is nil
// when snapshot events are disabled.
func NewHealthHandler(store *snapshot.Store, publisher *service.MessagePublisher) *HealthHandler {
	return &HealthHandler{
		store:     store,
		publisher: publisher,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic. A
// missing snapshot is reported but does not make the service unready.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	snapshotState := "empty"
	if h.store != nil {
		if _, err := h.store.Current(); err == nil {
			snapshotState = "loaded"
		}
	}

	rabbitState := "disabled"
	if h.publisher != nil {
		if !h.publisher.IsHealthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"snapshot": snapshotState,
				"rabbitmq": "unhealthy",
				"time":     time.Now(),
			})
			return
		}
		rabbitState = "healthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "UP",
		"snapshot": snapshotState,
		"rabbitmq": rabbitState,
		"time":     time.Now(),
	})
}
