package stats

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
)

// DefaultWrappedLimit is how many channels and videos a yearly summary lists.
const DefaultWrappedLimit = 5

const thumbnailURL = "https://img.youtube.com/vi/%s/mqdefault.jpg"

// Granularity selects timeline bucket size.
type Granularity string

// Granularity values.
const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ErrUnknownGranularity is returned for bucket sizes other than day, month and year.
var ErrUnknownGranularity = errors.New("unknown timeline granularity")

// ParseGranularity validates a granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityDay, GranularityMonth, GranularityYear:
		return g, nil
	case "":
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// Thumbnail returns the preview image URL for a video ID, or "" when the ID
// is a URL fallback rather than a real video ID.
func Thumbnail(id string) string {
	if id == "" || strings.Contains(id, "http") {
		return ""
	}
	return fmt.Sprintf(thumbnailURL, id)
}

// Years lists the calendar years present in entries, newest first.
func Years(entries []models.VideoEntry, loc *time.Location) []int {
	loc = location(loc)
	seen := make(map[int]struct{})
	years := []int{}
	for _, e := range entries {
		y := e.Date.In(loc).Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	slices.SortFunc(years, func(a, b int) int { return cmp.Compare(b, a) })
	return years
}

// ForYear returns the entries that fall in year, in input order.
func ForYear(entries []models.VideoEntry, year int, loc *time.Location) []models.VideoEntry {
	loc = location(loc)
	var out []models.VideoEntry
	for _, e := range entries {
		if e.Date.In(loc).Year() == year {
			out = append(out, e)
		}
	}
	return out
}

// Wrapped builds the yearly summary. limit <= 0 uses DefaultWrappedLimit.
func Wrapped(entries []models.VideoEntry, year int, loc *time.Location, limit int) models.YearSummary {
	if limit <= 0 {
		limit = DefaultWrappedLimit
	}

	subset := ForYear(entries, year, loc)
	r := Top(subset, limit)

	return models.YearSummary{
		Year:        year,
		TotalViews:  len(subset),
		TopChannels: r.Channels,
		TopVideos:   r.Videos,
	}
}

// Timeline counts entries per day, month or year, ordered by bucket start.
func Timeline(entries []models.VideoEntry, g Granularity, loc *time.Location) ([]models.TimelineBucket, error) {
	loc = location(loc)

	var layout string
	switch g {
	case GranularityDay:
		layout = "2006-01-02"
	case GranularityMonth:
		layout = "Jan 2006"
	case GranularityYear:
		layout = "2006"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}

	idx := make(map[time.Time]int)
	buckets := []models.TimelineBucket{}
	for _, e := range entries {
		t := e.Date.In(loc)
		var start time.Time
		switch g {
		case GranularityDay:
			start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		case GranularityMonth:
			start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		default:
			start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
		}

		if i, ok := idx[start]; ok {
			buckets[i].Count++
			continue
		}
		idx[start] = len(buckets)
		buckets = append(buckets, models.TimelineBucket{Label: start.Format(layout), Start: start, Count: 1})
	}

	slices.SortFunc(buckets, func(a, b models.TimelineBucket) int {
		return a.Start.Compare(b.Start)
	})
	return buckets, nil
}

// History returns one page of entries ordered newest first, plus the total count.
func History(entries []models.VideoEntry, limit, offset int) ([]models.HistoryItem, int) {
	total := len(entries)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []models.HistoryItem{}, total
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b models.VideoEntry) int {
		return b.Date.Compare(a.Date)
	})

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	items := make([]models.HistoryItem, 0, end-offset)
	for _, e := range sorted[offset:end] {
		items = append(items, models.HistoryItem{VideoEntry: e, ThumbnailURL: Thumbnail(e.ID)})
	}
	return items, total
}
