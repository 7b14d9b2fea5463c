package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/metrics"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeText struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeText) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeText) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func TestParseLeadingFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{name: "integer", in: "12", want: 12},
		{name: "decimal with unit", in: "12.5 minutes", want: 12.5},
		{name: "leading whitespace", in: "  \n7", want: 7},
		{name: "trailing dot", in: "8. That is my guess", want: 8},
		{name: "negative", in: "-3", want: -3},
		{name: "words first", in: "About 10 minutes", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "sign only", in: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLeadingFloat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyEstimate)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestLLMGenerator_EstimateAverageDuration(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "9.5 minutes"}
	g := NewLLMGenerator(text)

	got, err := g.EstimateAverageDuration(context.Background(), []string{"Lofi beats", "Cat #shorts"})
	require.NoError(t, err)
	assert.InDelta(t, 9.5, got, 1e-9)
	require.Len(t, text.prompts, 1)
	assert.Contains(t, text.prompts[0], `"Cat #shorts"`)
}

func TestLLMGenerator_EstimateAverageDuration_Unparseable(t *testing.T) {
	t.Parallel()

	g := NewLLMGenerator(&fakeText{reply: "I cannot tell"})
	_, err := g.EstimateAverageDuration(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmptyEstimate)
}

func TestLLMGenerator_SummarizeHabits(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "You are The Night Owl"}
	g := NewLLMGenerator(text)

	req := HabitsRequest{
		TopVideos:   []models.VideoCount{{Title: "Song A", Channel: "Artist", Count: 4}},
		TopChannels: []models.ChannelCount{{Name: "Artist", Count: 4}},
		TotalCount:  120,
		DateRange:   "2021 - 2024",
	}
	got, err := g.SummarizeHabits(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "You are The Night Owl", got)

	prompt := text.prompts[0]
	assert.Contains(t, prompt, "Videos watched: 120")
	assert.Contains(t, prompt, "2021 - 2024")
	assert.Contains(t, prompt, `"title":"Song A"`)
}

func TestLLMGenerator_Placeholders(t *testing.T) {
	t.Parallel()

	g := NewLLMGenerator(&fakeText{reply: ""})

	habits, err := g.SummarizeHabits(context.Background(), HabitsRequest{})
	require.NoError(t, err)
	assert.Equal(t, EmptyHabitsAnalysis, habits)

	music, err := g.CompareMusicTrends(context.Background(), MusicTrendsRequest{FirstYear: 2019, LastYear: 2024})
	require.NoError(t, err)
	assert.Equal(t, EmptyMusicAnalysis, music)
}

func TestLLMGenerator_CompareMusicTrends(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "From emo to jazz"}
	g := NewLLMGenerator(text)

	got, err := g.CompareMusicTrends(context.Background(), MusicTrendsRequest{
		FirstPeriod: PeriodTop{TopChannels: []models.ChannelCount{{Name: "EmoVEVO", Count: 9}}},
		LastPeriod:  PeriodTop{TopChannels: []models.ChannelCount{{Name: "Jazz Cafe", Count: 3}}},
		FirstYear:   2015,
		LastYear:    2024,
	})
	require.NoError(t, err)
	assert.Equal(t, "From emo to jazz", got)

	prompt := text.prompts[0]
	assert.Contains(t, prompt, "Their first year, 2015")
	assert.Contains(t, prompt, "Their most recent year, 2024")
	assert.Contains(t, prompt, "EmoVEVO")
	assert.Contains(t, prompt, "Jazz Cafe")
}

func TestLLMGenerator_PropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	g := NewLLMGenerator(&fakeText{err: boom})

	_, err := g.SummarizeHabits(context.Background(), HabitsRequest{})
	assert.ErrorIs(t, err, boom)

	_, err = g.CompareMusicTrends(context.Background(), MusicTrendsRequest{})
	assert.ErrorIs(t, err, boom)

	_, err = g.EstimateAverageDuration(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestTopListsJSON(t *testing.T) {
	t.Parallel()

	videos, channels, err := topListsJSON(PeriodTop{
		TopVideos:   []models.VideoCount{{Title: `Say "hi"`, Channel: "Greeter", Count: 4}},
		TopChannels: []models.ChannelCount{{Name: "Greeter", Count: 4, SampleVideoID: "abc"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"Say \"hi\"","channel":"Greeter","count":4}]`, videos)
	assert.JSONEq(t, `[{"name":"Greeter","count":4}]`, channels)

	videos, channels, err = topListsJSON(PeriodTop{})
	require.NoError(t, err)
	assert.Equal(t, "[]", videos)
	assert.Equal(t, "[]", channels)
}

func TestLLMGenerator_MusicPromptUsesBothPeriods(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "ok"}
	g := NewLLMGenerator(text)

	_, err := g.CompareMusicTrends(context.Background(), MusicTrendsRequest{
		FirstPeriod: PeriodTop{TopVideos: []models.VideoCount{{Title: "Old Song", Count: 2}}},
		LastPeriod:  PeriodTop{TopVideos: []models.VideoCount{{Title: "New Song", Count: 5}}},
		FirstYear:   2016,
		LastYear:    2023,
	})
	require.NoError(t, err)

	first, _, err := topListsJSON(PeriodTop{TopVideos: []models.VideoCount{{Title: "Old Song", Count: 2}}})
	require.NoError(t, err)
	last, _, err := topListsJSON(PeriodTop{TopVideos: []models.VideoCount{{Title: "New Song", Count: 5}}})
	require.NoError(t, err)

	require.Equal(t, 1, text.calls())
	assert.Contains(t, text.prompts[0], first)
	assert.Contains(t, text.prompts[0], last)
}

func TestCompactVideos_Truncates(t *testing.T) {
	t.Parallel()

	in := make([]models.VideoCount, 15)
	for i := range in {
		in[i] = models.VideoCount{Title: strings.Repeat("v", i+1), Count: 15 - i}
	}
	out := compactVideos(in, 10)
	assert.Len(t, out, 10)
	assert.Equal(t, "v", out[0].Title)
	assert.Empty(t, compactChannels(nil, 10))
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	a := CacheKey("habits", `{"totalCount":1}`)
	b := CacheKey("habits", `{"totalCount":1}`)
	c := CacheKey("music", `{"totalCount":1}`)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "wh:insight:"))
}

func TestCachedGenerator_HitsL1(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	text := &fakeText{reply: "persona"}
	cached := NewCachedGenerator(NewLLMGenerator(text), nil, time.Hour, 10, m)

	req := HabitsRequest{TotalCount: 3, DateRange: "2024 - 2024"}
	for range 3 {
		got, err := cached.SummarizeHabits(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "persona", got)
	}

	assert.Equal(t, 1, text.calls())
	assert.InDelta(t, 2, cacheLookups(t, m, "l1"), 0)
	assert.InDelta(t, 1, cacheLookups(t, m, "miss"), 0)
}

func TestCachedGenerator_DistinctRequests(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "x"}
	cached := NewCachedGenerator(NewLLMGenerator(text), nil, time.Hour, 10, nil)

	_, _ = cached.SummarizeHabits(context.Background(), HabitsRequest{TotalCount: 1})
	_, _ = cached.SummarizeHabits(context.Background(), HabitsRequest{TotalCount: 2})
	_, _ = cached.CompareMusicTrends(context.Background(), MusicTrendsRequest{FirstYear: 2020, LastYear: 2021})

	assert.Equal(t, 3, text.calls())
	assert.Equal(t, 3, cached.Len())
}

func TestCachedGenerator_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	text := &fakeText{err: errors.New("down")}
	cached := NewCachedGenerator(NewLLMGenerator(text), nil, time.Hour, 10, nil)

	_, err := cached.SummarizeHabits(context.Background(), HabitsRequest{})
	require.Error(t, err)
	_, err = cached.SummarizeHabits(context.Background(), HabitsRequest{})
	require.Error(t, err)

	assert.Equal(t, 2, text.calls())
	assert.Equal(t, 0, cached.Len())
}

func TestCachedGenerator_EstimateNotCached(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "5"}
	cached := NewCachedGenerator(NewLLMGenerator(text), nil, time.Hour, 10, nil)

	for range 2 {
		v, err := cached.EstimateAverageDuration(context.Background(), []string{"a"})
		require.NoError(t, err)
		assert.InDelta(t, 5, v, 0)
	}
	assert.Equal(t, 2, text.calls())
}

func TestCachedGenerator_Expiry(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "x"}
	cached := NewCachedGenerator(NewLLMGenerator(text), nil, 10*time.Millisecond, 10, nil)

	_, _ = cached.SummarizeHabits(context.Background(), HabitsRequest{})
	time.Sleep(20 * time.Millisecond)
	_, _ = cached.SummarizeHabits(context.Background(), HabitsRequest{})

	assert.Equal(t, 2, text.calls())
}

func TestCachedGenerator_Eviction(t *testing.T) {
	t.Parallel()

	text := &fakeText{reply: "x"}
	cached := NewCachedGenerator(NewLLMGenerator(text), nil, time.Hour, 3, nil)

	for i := range 10 {
		_, err := cached.SummarizeHabits(context.Background(), HabitsRequest{TotalCount: i})
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, cached.Len(), 3)
}

func cacheLookups(t *testing.T, m *metrics.Metrics, tier string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "watch_history_insight_cache_lookups_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "tier" && label.GetValue() == tier {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
