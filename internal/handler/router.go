package handler

import (
	"net/http"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/metrics"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/middleware"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Import  *ImportHandler
	Stats   *StatsHandler
	Insight *InsightHandler
	Health  *HealthHandler
	Metrics *metrics.Metrics
	// Auth guards the mutating and model-backed routes when non-nil.
	Auth *middleware.APIKeyAuth
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.Named("http")))

	router.GET("/health/live", h.Health.LivenessProbe)
	router.GET("/health/ready", h.Health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	api := router.Group("/api/v1")
	api.GET("/stats", h.Stats.GetStats)
	api.GET("/stats/years", h.Stats.ListYears)
	api.GET("/stats/years/:year", h.Stats.GetYear)
	api.GET("/stats/timeline", h.Stats.GetTimeline)
	api.GET("/history", h.Stats.GetHistory)
	api.GET("/imports/current", h.Import.GetCurrent)
	api.GET("/insights/status", h.Insight.GetStatus)

	guarded := api.Group("")
	if h.Auth != nil {
		guarded.Use(h.Auth.Handler())
	}
	guarded.POST("/imports", h.Import.HandleImport)
	guarded.POST("/insights/habits", h.Insight.AnalyzeHabits)
	guarded.POST("/insights/music", h.Insight.AnalyzeMusicTrends)

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "route not found", "")
	})

	return router
}
