package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Tom &amp; Jerry", want: "Tom & Jerry"},
		{in: "It&#39;s fine", want: "It's fine"},
		{in: "&quot;quoted&quot;", want: `"quoted"`},
		{in: "&lt;b&gt;", want: "<b>"},
		{in: "&#x4E2D;&#25991;", want: "中文"},
		{in: "plain", want: "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeEntities(tt.in), tt.in)
	}
}

func TestIsNoise(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		title   string
		channel string
		want    bool
	}{
		{name: "regular record", title: "Video", channel: "Channel", want: false},
		{name: "here link", title: "Video", channel: "here", want: true},
		{name: "here inside a name", title: "Video", channel: "Over here", want: false},
		{name: "products footer", title: "Video", channel: "Products: YouTube", want: true},
		{name: "why is this here", title: "Video", channel: "Why is this here?", want: true},
		{name: "ads channel", title: "Video", channel: "From Google Ads", want: true},
		{name: "ads title", title: "Shown From Google Ads", channel: "Brand", want: true},
		{name: "music visit", title: "Visited YouTube Music", channel: "", want: true},
		{name: "music visit prefix only", title: "Visited YouTube Music twice", channel: "X", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNoise(tt.title, tt.channel))
		})
	}
}

func TestDeriveVideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "watch url", url: "https://www.youtube.com/watch?v=XYZ", want: "XYZ"},
		{name: "extra params", url: "https://www.youtube.com/watch?v=abc&t=42s", want: "abc"},
		{name: "entity encoded params", url: "https://www.youtube.com/watch?v=abc&amp;t=42s", want: "abc"},
		{name: "no v parameter", url: "https://music.youtube.com/playlist?list=PL1", want: "https://music.youtube.com/playlist?list=PL1"},
		{name: "empty v parameter", url: "https://www.youtube.com/watch?v=", want: "https://www.youtube.com/watch?v="},
		{name: "relative url", url: "/watch?v=XYZ", want: "/watch?v=XYZ"},
		{name: "not a url", url: "not a url", want: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveVideoID(tt.url))
		})
	}
}

func TestNormalizer_ParseDate(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name     string
		raw      string
		opts     Options
		want     time.Time
		wantFail bool
	}{
		{
			name: "english with abbreviation",
			raw:  "Jan 15, 2024, 3:45:12 PM EST",
			opts: Options{Location: time.UTC},
			want: time.Date(2024, 1, 15, 20, 45, 12, 0, time.UTC),
		},
		{
			name: "narrow no-break space before meridiem",
			raw:  "Jan 15, 2024, 3:45:12\u202fPM CET",
			opts: Options{Location: time.UTC},
			want: time.Date(2024, 1, 15, 14, 45, 12, 0, time.UTC),
		},
		{
			name: "day first english",
			raw:  " 15 Jan 2024, 15:45:12 CET\n",
			opts: Options{Location: time.UTC},
			want: time.Date(2024, 1, 15, 14, 45, 12, 0, time.UTC),
		},
		{
			name: "no zone uses location",
			raw:  "Jan 15, 2024, 3:45:12 PM",
			opts: Options{Location: est},
			want: time.Date(2024, 1, 15, 20, 45, 12, 0, time.UTC),
		},
		{
			name: "numeric month first",
			raw:  "02/03/2024, 10:00:00",
			opts: Options{Location: time.UTC},
			want: time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "numeric day first",
			raw:  "02/03/2024, 10:00:00",
			opts: Options{Location: time.UTC, DayFirst: true},
			want: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "iso timestamp",
			raw:  "2024-01-15T10:00:00Z",
			opts: Options{Location: time.UTC},
			want: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{name: "empty", raw: "   ", opts: Options{Location: time.UTC}, wantFail: true},
		{name: "garbage", raw: "sometime last week", opts: Options{Location: time.UTC}, wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewNormalizer(tt.opts).ParseDate(tt.raw)
			if tt.wantFail {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(Options{Location: time.UTC})

	entry, outcome := n.Normalize(RawRecord{
		VideoURL:   "https://www.youtube.com/watch?v=abc",
		RawTitle:   "Rock &amp; Roll",
		ChannelURL: "https://www.youtube.com/channel/UC1",
		RawChannel: "Band &#39;n&#39; Co",
		RawDate:    "Mar 3, 2023, 8:00:00 AM UTC",
	})

	require.Equal(t, OutcomeAccepted, outcome)
	assert.Equal(t, "abc", entry.ID)
	assert.Equal(t, "Rock & Roll", entry.Title)
	assert.Equal(t, "Band 'n' Co", entry.Channel)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", entry.URL)

	_, outcome = n.Normalize(RawRecord{RawTitle: "x", RawChannel: "here", RawDate: "Mar 3, 2023, 8:00:00 AM UTC"})
	assert.Equal(t, OutcomeNoise, outcome)
	assert.Equal(t, "noise", outcome.String())

	_, outcome = n.Normalize(RawRecord{RawTitle: "x", RawChannel: "y", RawDate: "never"})
	assert.Equal(t, OutcomeInvalidDate, outcome)
	assert.Equal(t, "invalid_date", outcome.String())
}

func TestScanner(t *testing.T) {
	t.Parallel()

	doc := document(
		fragment("https://www.youtube.com/watch?v=a", "A", "https://c/1", "One", "Jan 1, 2024, 1:00:00 AM UTC"),
		fragment("https://www.youtube.com/watch?v=b", "B", "https://c/2", "Two", "Jan 2, 2024, 1:00:00 AM UTC"),
	)

	sc := NewScanner(doc)
	var titles []string
	for sc.Next() {
		rec := sc.Record()
		titles = append(titles, rec.RawTitle)
		assert.Equal(t, "Jan "+map[string]string{"A": "1", "B": "2"}[rec.RawTitle]+", 2024, 1:00:00 AM UTC", rec.RawDate)
	}

	assert.Equal(t, []string{"A", "B"}, titles)
	assert.Equal(t, 2, sc.Matched())
	assert.Empty(t, sc.Failures())
	assert.False(t, sc.Next(), "scanner does not restart")
}
