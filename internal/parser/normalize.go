package parser

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/araddon/dateparse"
)

// Outcome classifies what the normalizer did with a raw record.
type Outcome int

// Outcome values.
const (
	OutcomeAccepted Outcome = iota
	OutcomeNoise
	OutcomeInvalidDate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeNoise:
		return "noise"
	case OutcomeInvalidDate:
		return "invalid_date"
	default:
		return "unknown"
	}
}

// Options controls locale-dependent parsing.
type Options struct {
	// Location is used for timestamps that carry no zone. Defaults to time.Local.
	Location *time.Location
	// DayFirst reads numeric dates as day/month/year.
	DayFirst bool
}

// Normalizer turns RawRecords into validated VideoEntries.
type Normalizer struct {
	loc     *time.Location
	layouts []string
}

// NewNormalizer creates a Normalizer for the given options.
func NewNormalizer(opts Options) *Normalizer {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	layouts := append([]string{}, textLayouts...)
	if opts.DayFirst {
		layouts = append(layouts, dayFirstLayouts...)
	} else {
		layouts = append(layouts, monthFirstLayouts...)
	}

	return &Normalizer{loc: loc, layouts: layouts}
}

// Normalize decodes, filters and validates one record.
func (n *Normalizer) Normalize(rec RawRecord) (models.VideoEntry, Outcome) {
	title := DecodeEntities(rec.RawTitle)
	channel := DecodeEntities(rec.RawChannel)

	if IsNoise(title, channel) {
		return models.VideoEntry{}, OutcomeNoise
	}

	date, ok := n.ParseDate(rec.RawDate)
	if !ok {
		return models.VideoEntry{}, OutcomeInvalidDate
	}

	return models.VideoEntry{
		Title:      title,
		URL:        rec.VideoURL,
		Channel:    channel,
		ChannelURL: rec.ChannelURL,
		Date:       date,
		ID:         DeriveVideoID(rec.VideoURL),
	}, OutcomeAccepted
}

// DecodeEntities resolves numeric and named HTML character references.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// IsNoise reports whether a decoded record is page chrome rather than a watch event.
func IsNoise(title, channel string) bool {
	switch {
	case channel == "here":
		return true
	case strings.Contains(channel, "Products:"):
		return true
	case strings.Contains(channel, "Why is this here?"):
		return true
	case strings.Contains(channel, "From Google Ads"):
		return true
	case strings.Contains(title, "From Google Ads"):
		return true
	case title == "Visited YouTube Music":
		return true
	}
	return false
}

// DeriveVideoID returns the v query parameter of an absolute video URL,
// or the URL itself when it is not absolute or has no v parameter.
func DeriveVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return rawURL
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return rawURL
}

var textLayouts = []string{
	"Jan 2, 2006, 3:04:05 PM -0700",
	"Jan 2, 2006, 3:04:05 PM",
	"Jan 2, 2006, 15:04:05 -0700",
	"Jan 2, 2006, 15:04:05",
	"January 2, 2006, 3:04:05 PM -0700",
	"January 2, 2006, 3:04:05 PM",
	"2 Jan 2006, 15:04:05 -0700",
	"2 Jan 2006, 15:04:05",
	"2 January 2006, 15:04:05 -0700",
	"2 January 2006, 15:04:05",
	"2 Jan 2006, 3:04:05 PM -0700",
	"2 Jan 2006, 3:04:05 PM",
	time.RFC3339,
}

var monthFirstLayouts = []string{
	"1/2/2006, 3:04:05 PM -0700",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 15:04:05",
}

var dayFirstLayouts = []string{
	"2/1/2006, 15:04:05 -0700",
	"2/1/2006, 15:04:05",
	"2.1.2006, 15:04:05 -0700",
	"2.1.2006, 15:04:05",
}

// zoneOffsets maps the abbreviations seen in exports to numeric offsets.
var zoneOffsets = map[string]string{
	"UT":   "+0000",
	"UTC":  "+0000",
	"GMT":  "+0000",
	"Z":    "+0000",
	"WET":  "+0000",
	"WEST": "+0100",
	"BST":  "+0100",
	"CET":  "+0100",
	"CEST": "+0200",
	"EET":  "+0200",
	"EEST": "+0300",
	"IST":  "+0530",
	"JST":  "+0900",
	"AEST": "+1000",
	"AEDT": "+1100",
	"EST":  "-0500",
	"EDT":  "-0400",
	"CST":  "-0600",
	"CDT":  "-0500",
	"MST":  "-0700",
	"MDT":  "-0600",
	"PST":  "-0800",
	"PDT":  "-0700",
}

// ParseDate parses the text that follows <br> in a record.
func (n *Normalizer) ParseDate(raw string) (time.Time, bool) {
	s := cleanDate(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range n.layouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, true
		}
	}

	t, err := dateparse.ParseIn(s, n.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func cleanDate(raw string) string {
	s := strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(raw)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	if off, ok := zoneOffsets[fields[len(fields)-1]]; ok {
		fields[len(fields)-1] = off
	}
	return strings.Join(fields, " ")
}
