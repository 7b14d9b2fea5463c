package handler

import (
	"net/http"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/service"
	"github.com/gin-gonic/gin"
)

// InsightHandler exposes the AI analyses.
type InsightHandler struct {
	insightService *service.InsightService
}

// NewInsightHandler creates a new InsightHandler instance.
func NewInsightHandler(insightService *service.InsightService) *InsightHandler {
	return &InsightHandler{insightService: insightService}
}

// AnalyzeHabits runs the habit analysis over the current snapshot.
func (h *InsightHandler) AnalyzeHabits(c *gin.Context) {
	result, err := h.insightService.AnalyzeHabits(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeMusicTrends compares the first and last year of the current snapshot.
func (h *InsightHandler) AnalyzeMusicTrends(c *gin.Context) {
	result, err := h.insightService.AnalyzeMusicTrends(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatus reports each analysis' state for the current snapshot.
func (h *InsightHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":              h.insightService.Enabled(),
		service.OperationHabits: h.insightService.Status(service.OperationHabits),
		service.OperationMusic:  h.insightService.Status(service.OperationMusic),
	})
}
