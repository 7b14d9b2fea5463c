package handler

import (
	"net/http"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/snapshot"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/stats"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/validation"
	"github.com/gin-gonic/gin"
)

// StatsHandler serves read-only views of the current snapshot.
type StatsHandler struct {
	store *snapshot.Store
	loc   *time.Location
}

// NewStatsHandler creates a new StatsHandler. loc decides calendar boundaries.
func NewStatsHandler(store *snapshot.Store, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &StatsHandler{store: store, loc: loc}
}

// GetStats returns the aggregate statistics with top lists cut to ?limit.
func (h *StatsHandler) GetStats(c *gin.Context) {
	snap, err := h.store.Current()
	if err != nil {
		handleError(c, err)
		return
	}

	computed := stats.Truncated(snap.Stats, parseLimit(c, defaultLimit))

	c.JSON(http.StatusOK, models.StatsResponseDTO{
		ImportID:   snap.ImportID,
		ImportedAt: snap.ImportedAt,
		Stats:      computed,
		Duration:   stats.FormatMinutes(float64(computed.EstimatedMinutesDeterministic)),
		YearSpan:   stats.YearSpan(computed, h.loc),
	})
}

// ListYears returns the calendar years present in the history, newest first.
func (h *StatsHandler) ListYears(c *gin.Context) {
	snap, err := h.store.Current()
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"years": stats.Years(snap.Entries(), h.loc),
	})
}

// GetYear returns the wrapped summary of one calendar year.
func (h *StatsHandler) GetYear(c *gin.Context) {
	year, err := validation.ParseYear(c.Param("year"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	snap, err := h.store.Current()
	if err != nil {
		handleError(c, err)
		return
	}

	summary := stats.Wrapped(snap.Entries(), year, h.loc, parseLimit(c, stats.DefaultWrappedLimit))
	if summary.TotalViews == 0 {
		respondError(c, http.StatusNotFound, "no watch history for the requested year", "")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetTimeline returns watch counts per ?granularity bucket (day, month or year).
func (h *StatsHandler) GetTimeline(c *gin.Context) {
	g, err := stats.ParseGranularity(c.Query("granularity"))
	if err != nil {
		handleError(c, err)
		return
	}

	snap, err := h.store.Current()
	if err != nil {
		handleError(c, err)
		return
	}

	buckets, err := stats.Timeline(snap.Entries(), g, h.loc)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"granularity": g,
		"buckets":     buckets,
	})
}

// GetHistory returns a newest-first page of watch events.
func (h *StatsHandler) GetHistory(c *gin.Context) {
	snap, err := h.store.Current()
	if err != nil {
		handleError(c, err)
		return
	}

	limit := parseLimit(c, defaultLimit)
	offset := parseOffset(c)
	items, total := stats.History(snap.Entries(), limit, offset)

	c.JSON(http.StatusOK, models.HistoryPageDTO{
		Items:  items,
		Count:  len(items),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
