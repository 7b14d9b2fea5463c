// Package insight produces narrative analyses of a watch history through a language model.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
)

// Placeholders returned when the model answers with nothing.
const (
	EmptyHabitsAnalysis = "Could not generate analysis."
	EmptyMusicAnalysis  = "Could not generate music trend analysis."
)

// ErrEmptyEstimate is returned when the model reply holds no leading number.
var ErrEmptyEstimate = errors.New("model reply did not start with a number")

// HabitsRequest is the aggregate summary sent for a persona analysis.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HabitsRequest struct {
	TopVideos   []models.VideoCount   `json:"topVideos"`
	TopChannels []models.ChannelCount `json:"topChannels"`
	TotalCount  int                   `json:"totalCount"`
	DateRange   string                `json:"dateRange"`
}

// MusicTrendsRequest compares the rankings of two calendar years.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type MusicTrendsRequest struct {
	FirstPeriod PeriodTop `json:"firstPeriod"`
	LastPeriod  PeriodTop `json:"lastPeriod"`
	FirstYear   int       `json:"firstYear"`
	LastYear    int       `json:"lastYear"`
}

// PeriodTop is one year's top videos and channels.
type PeriodTop struct {
	TopVideos   []models.VideoCount   `json:"topVideos"`
	TopChannels []models.ChannelCount `json:"topChannels"`
}

// Generator is the language-model collaborator. Every method may fail;
// callers decide on fallbacks.
type Generator interface {
	EstimateAverageDuration(ctx context.Context, sampleTitles []string) (float64, error)
	SummarizeHabits(ctx context.Context, req HabitsRequest) (string, error)
	CompareMusicTrends(ctx context.Context, req MusicTrendsRequest) (string, error)
}

// ParseLeadingFloat reads the number at the start of s, ignoring leading
// whitespace and anything after the number ("12.5 minutes" is 12.5).
func ParseLeadingFloat(s string) (float64, error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	seenDigit, seenDot := false, false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
	}
	if !seenDigit {
		return 0, ErrEmptyEstimate
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmptyEstimate, err)
	}
	return v, nil
}
