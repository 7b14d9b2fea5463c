// Package middleware provides gin middleware for authentication and request logging.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerAPIKey      = "X-API-Key"
	headerAuth        = "Authorization"
	bearerPrefix      = "Bearer "
	unauthorizedError = "Unauthorized"
)

// APIKeyAuth provides API key authentication middleware.
type APIKeyAuth struct {
	apiKeys map[string]bool
	logger  *zap.Logger
}

// NewAPIKeyAuth creates a new API key authentication middleware.
// If no keys are provided, all requests will be rejected.
func NewAPIKeyAuth(apiKeys []string, logger *zap.Logger) *APIKeyAuth {
	if logger == nil {
		logger = zap.NewNop()
	}

	keyMap := make(map[string]bool, len(apiKeys))
	for _, key := range apiKeys {
		if key != "" {
			keyMap[key] = true
		}
	}

	return &APIKeyAuth{
		apiKeys: keyMap,
		logger:  logger,
	}
}

// Handler returns a gin middleware that validates API keys.
// It checks for API keys in the following order:
// 1. X-API-Key header
// 2. Authorization: Bearer <key> header
//
// If no valid API key is found, it aborts with 401 Unauthorized.
func (a *APIKeyAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.isValidAPIKey(a.extractAPIKey(c.Request)) {
			a.logger.Warn("Unauthorized request: invalid or missing API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remoteAddr", c.Request.RemoteAddr),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Status:    http.StatusUnauthorized,
				Error:     unauthorizedError,
				Message:   "A valid API key is required",
				Timestamp: time.Now(),
				Path:      c.Request.URL.Path,
			})
			return
		}

		c.Next()
	}
}

// extractAPIKey extracts the API key from the request headers.
func (a *APIKeyAuth) extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get(headerAPIKey); apiKey != "" {
		return apiKey
	}

	authHeader := r.Header.Get(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

// isValidAPIKey validates the provided API key using constant-time comparison.
func (a *APIKeyAuth) isValidAPIKey(providedKey string) bool {
	if providedKey == "" || len(a.apiKeys) == 0 {
		return false
	}

	for validKey := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(validKey)) == 1 {
			return true
		}
	}

	return false
}
