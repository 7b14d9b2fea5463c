// Package stats aggregates watch events into ranked tallies and watch-time estimates.
package stats

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
)

// DefaultListLimit is how many top videos and channels a response carries by default.
const DefaultListLimit = 50

const (
	// defaultWatchMinutes is credited when the gap to the next event is unusable.
	defaultWatchMinutes = 15.0
	// sessionGapMinutes is the largest gap still read as continuous watching.
	sessionGapMinutes = 60.0
)

// Ranking holds descending-count video and channel tallies.
type Ranking struct {
	Videos   []models.VideoCount
	Channels []models.ChannelCount
}

// Compute derives WatchStats from an entry collection. The input is not modified.
func Compute(entries []models.VideoEntry) models.WatchStats {
	if len(entries) == 0 {
		return models.WatchStats{
			TopVideos:   []models.VideoCount{},
			TopChannels: []models.ChannelCount{},
		}
	}

	sorted := sortByDate(entries)
	r := rank(sorted)

	first := sorted[0].Date
	last := sorted[len(sorted)-1].Date

	return models.WatchStats{
		TotalVideos:                   len(sorted),
		UniqueVideos:                  UniqueVideos(sorted),
		TopVideos:                     r.Videos,
		TopChannels:                   r.Channels,
		FirstDate:                     &first,
		LastDate:                      &last,
		EstimatedMinutesDeterministic: estimateSorted(sorted),
	}
}

// Rank tallies any subset of entries with the same ordering rules as Compute.
func Rank(entries []models.VideoEntry) Ranking {
	return rank(sortByDate(entries))
}

// Top is Rank truncated to n items per list. n <= 0 keeps everything.
func Top(entries []models.VideoEntry, n int) Ranking {
	r := Rank(entries)
	return Ranking{
		Videos:   truncate(r.Videos, n),
		Channels: truncate(r.Channels, n),
	}
}

// Truncated returns s with both top lists cut to n items. n <= 0 keeps everything.
func Truncated(s models.WatchStats, n int) models.WatchStats {
	s.TopVideos = truncate(s.TopVideos, n)
	s.TopChannels = truncate(s.TopChannels, n)
	return s
}

// UniqueVideos counts distinct ID values. Entries with an empty ID share one bucket,
// unlike Rank, which groups them by URL.
func UniqueVideos(entries []models.VideoEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.ID] = struct{}{}
	}
	return len(seen)
}

// estimateMinutes credits each event with the gap to the next one when it is
// under an hour, and 15 minutes otherwise. The result is floored.
func estimateMinutes(entries []models.VideoEntry) int {
	return estimateSorted(sortByDate(entries))
}

func estimateSorted(sorted []models.VideoEntry) int {
	total := 0.0
	for i := range sorted {
		d := defaultWatchMinutes
		if i < len(sorted)-1 {
			gap := sorted[i+1].Date.Sub(sorted[i].Date).Minutes()
			if gap > 0 && gap < sessionGapMinutes {
				d = gap
			}
		}
		total += d
	}
	return int(math.Floor(total))
}

func sortByDate(entries []models.VideoEntry) []models.VideoEntry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b models.VideoEntry) int {
		return a.Date.Compare(b.Date)
	})
	return sorted
}

func rank(sorted []models.VideoEntry) Ranking {
	videoIdx := make(map[string]int)
	channelIdx := make(map[string]int)
	var videos []models.VideoCount
	var channels []models.ChannelCount

	for _, e := range sorted {
		key := e.ID
		if key == "" {
			key = e.URL
		}
		if i, ok := videoIdx[key]; ok {
			videos[i].Count++
		} else {
			videoIdx[key] = len(videos)
			videos = append(videos, models.VideoCount{
				Key:          key,
				Title:        e.Title,
				URL:          e.URL,
				Channel:      e.Channel,
				Count:        1,
				ThumbnailURL: Thumbnail(e.ID),
			})
		}

		name := e.Channel
		if name == "" {
			name = models.UnknownChannel
		}
		if i, ok := channelIdx[name]; ok {
			channels[i].Count++
			if channels[i].SampleVideoID == "" {
				channels[i].SampleVideoID = e.ID
			}
		} else {
			channelIdx[name] = len(channels)
			channels = append(channels, models.ChannelCount{Name: name, Count: 1, SampleVideoID: e.ID})
		}
	}

	slices.SortStableFunc(videos, func(a, b models.VideoCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	slices.SortStableFunc(channels, func(a, b models.ChannelCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if videos == nil {
		videos = []models.VideoCount{}
	}
	if channels == nil {
		channels = []models.ChannelCount{}
	}
	return Ranking{Videos: videos, Channels: channels}
}

func truncate[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
