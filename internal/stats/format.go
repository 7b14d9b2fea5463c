package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
)

// FormatMinutes renders a duration as "N mins", "H hours" or "D days, H hours".
func FormatMinutes(minutes float64) string {
	if minutes < 60 {
		return fmt.Sprintf("%d mins", int(math.Round(minutes)))
	}

	total := int(math.Floor(minutes))
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	if days == 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d days, %d hours", days, hours)
}

// YearSpan is the number of calendar years between the first and last entry, inclusive.
func YearSpan(s models.WatchStats, loc *time.Location) int {
	if s.FirstDate == nil || s.LastDate == nil {
		return 0
	}
	loc = location(loc)
	return s.LastDate.In(loc).Year() - s.FirstDate.In(loc).Year() + 1
}

// DateRange renders the covered years as "2019 - 2024".
func DateRange(s models.WatchStats, loc *time.Location) string {
	if s.FirstDate == nil || s.LastDate == nil {
		return ""
	}
	loc = location(loc)
	return fmt.Sprintf("%d - %d", s.FirstDate.In(loc).Year(), s.LastDate.In(loc).Year())
}
