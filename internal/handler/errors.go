package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/service"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/snapshot"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/stats"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLimit = stats.DefaultListLimit
	maxLimit     = 1000
)

func respondError(c *gin.Context, status int, message string, analysis models.AnalysisStatus) {
	c.JSON(status, models.ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
		Analysis:  analysis,
	})
}

// handleError maps service errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		processingErr *service.ProcessingError
		insightErr    *service.InsightError
	)

	switch {
	case errors.As(err, &validationErr):
		logger.Log.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, snapshot.ErrNoSnapshot):
		respondError(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, stats.ErrUnknownGranularity):
		respondError(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, service.ErrInsightsDisabled):
		respondError(c, http.StatusServiceUnavailable, err.Error(), "")
	case errors.As(err, &insightErr):
		logger.Log.Error("Insight error",
			zap.Error(err),
			zap.String("operation", insightErr.Operation),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadGateway, "Failed to generate "+insightErr.Operation+" analysis", models.AnalysisStatusError)
	case errors.As(err, &processingErr):
		logger.Log.Error("Processing error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, "Failed to process history document", "")
	default:
		logger.Log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, "An unexpected error occurred", "")
	}
}

func parseLimit(c *gin.Context, def int) int {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return def
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return def
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}

func parseOffset(c *gin.Context) int {
	offsetStr := c.Query("offset")
	if offsetStr == "" {
		return 0
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0
	}

	return offset
}
