// Package models contains the data models and DTOs for the watch history analyzer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// UnknownChannel is the bucket name for entries whose channel text is empty.
const UnknownChannel = "Unknown Channel"

// AnalysisStatus represents the state of an insight request.
type AnalysisStatus string

// AnalysisStatus constants define the possible states of an insight analysis.
const (
	AnalysisStatusIdle      AnalysisStatus = "IDLE"
	AnalysisStatusAnalyzing AnalysisStatus = "ANALYZING"
	AnalysisStatusComplete  AnalysisStatus = "COMPLETE"
	AnalysisStatusError     AnalysisStatus = "ERROR"
)

// VideoEntry is one validated watch event.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoEntry struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Channel    string    `json:"channel"`
	ChannelURL string    `json:"channelUrl"`
	Date       time.Time `json:"date"`
	ID         string    `json:"id"`
}

// VideoCount is one ranked video bucket.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoCount struct {
	Key          string `json:"key"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Channel      string `json:"channel"`
	Count        int    `json:"count"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// ChannelCount is one ranked channel bucket.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ChannelCount struct {
	Name          string `json:"name"`
	Count         int    `json:"count"`
	SampleVideoID string `json:"sampleVideoId,omitempty"`
}

// WatchStats is the aggregate computed over an entry collection.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type WatchStats struct {
	TotalVideos                   int            `json:"totalVideos"`
	UniqueVideos                  int            `json:"uniqueVideos"`
	TopVideos                     []VideoCount   `json:"topVideos"`
	TopChannels                   []ChannelCount `json:"topChannels"`
	FirstDate                     *time.Time     `json:"firstDate"`
	LastDate                      *time.Time     `json:"lastDate"`
	EstimatedMinutesDeterministic int            `json:"estimatedMinutesDeterministic"`
}

// YearSummary is the per-year "wrapped" view.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YearSummary struct {
	Year        int            `json:"year"`
	TotalViews  int            `json:"totalViews"`
	TopChannels []ChannelCount `json:"topChannels"`
	TopVideos   []VideoCount   `json:"topVideos"`
}

// TimelineBucket is one histogram bar.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TimelineBucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// HistoryItem is one row of the newest-first history listing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HistoryItem struct {
	VideoEntry
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// ImportReport summarises one import's extraction pass.
type ImportReport struct {
	Matched      int `json:"matched"`
	Accepted     int `json:"accepted"`
	Noise        int `json:"noise"`
	InvalidDates int `json:"invalidDates"`
	Failures     int `json:"failures"`
}

// ImportResponseDTO is returned after a successful import.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ImportResponseDTO struct {
	ImportID   uuid.UUID    `json:"importId"`
	Source     string       `json:"source"`
	ImportedAt time.Time    `json:"importedAt"`
	Report     ImportReport `json:"report"`
	Stats      WatchStats   `json:"stats"`
	Duration   string       `json:"estimatedDuration"`
}

// StatsResponseDTO wraps the current statistics.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type StatsResponseDTO struct {
	ImportID   uuid.UUID  `json:"importId"`
	ImportedAt time.Time  `json:"importedAt"`
	Stats      WatchStats `json:"stats"`
	Duration   string     `json:"estimatedDuration"`
	YearSpan   int        `json:"yearSpan"`
}

// HistoryPageDTO is a page of the history listing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HistoryPageDTO struct {
	Items  []HistoryItem `json:"items"`
	Count  int           `json:"count"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// HabitsInsightDTO is the result of a habit analysis.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HabitsInsightDTO struct {
	Status              AnalysisStatus `json:"status"`
	Analysis            string         `json:"analysis"`
	AverageMinutes      float64        `json:"averageMinutes"`
	EstimatedMinutesAI  int            `json:"estimatedMinutesAI"`
	EstimatedDurationAI string         `json:"estimatedDurationAI"`
	DateRange           string         `json:"dateRange"`
	UsedDefaultAverage  bool           `json:"usedDefaultAverage"`
	CompletedAt         time.Time      `json:"completedAt"`
}

// MusicInsightDTO is the result of a music trend comparison.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MusicInsightDTO struct {
	Status      AnalysisStatus `json:"status"`
	Analysis    string         `json:"analysis"`
	FirstYear   int            `json:"firstYear"`
	LastYear    int            `json:"lastYear"`
	Skipped     bool           `json:"skipped"`
	CompletedAt time.Time      `json:"completedAt"`
}

// SnapshotEvent is published when a new snapshot replaces the previous one.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SnapshotEvent struct {
	ImportID     uuid.UUID  `json:"importId"`
	Source       string     `json:"source"`
	PublishedAt  time.Time  `json:"publishedAt"`
	TotalVideos  int        `json:"totalVideos"`
	UniqueVideos int        `json:"uniqueVideos"`
	FirstDate    *time.Time `json:"firstDate"`
	LastDate     *time.Time `json:"lastDate"`
	Minutes      int        `json:"estimatedMinutes"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    int            `json:"status"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Path      string         `json:"path"`
	Analysis  AnalysisStatus `json:"analysisStatus,omitempty"`
}
