package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
)

// TextGenerator sends one prompt to a model. *llm.Client satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator implements Generator with plain-text prompts.
type LLMGenerator struct {
	text TextGenerator
}

// NewLLMGenerator creates a Generator backed by text.
func NewLLMGenerator(text TextGenerator) *LLMGenerator {
	return &LLMGenerator{text: text}
}

// EstimateAverageDuration asks for a single number of minutes per video.
func (g *LLMGenerator) EstimateAverageDuration(ctx context.Context, sampleTitles []string) (float64, error) {
	titles, err := json.Marshal(sampleTitles)
	if err != nil {
		return 0, fmt.Errorf("marshal titles: %w", err)
	}

	reply, err := g.text.Generate(ctx, buildEstimatePrompt(string(titles)))
	if err != nil {
		return 0, fmt.Errorf("estimate average duration: %w", err)
	}

	return ParseLeadingFloat(reply)
}

// SummarizeHabits asks for a persona-style summary of the top lists.
func (g *LLMGenerator) SummarizeHabits(ctx context.Context, req HabitsRequest) (string, error) {
	videos, channels, err := topListsJSON(PeriodTop{TopVideos: req.TopVideos, TopChannels: req.TopChannels})
	if err != nil {
		return "", err
	}

	reply, err := g.text.Generate(ctx, buildHabitsPrompt(req.TotalCount, req.DateRange, videos, channels))
	if err != nil {
		return "", fmt.Errorf("summarize habits: %w", err)
	}
	if reply == "" {
		return EmptyHabitsAnalysis, nil
	}
	return reply, nil
}

// CompareMusicTrends asks how musical taste changed between two years.
func (g *LLMGenerator) CompareMusicTrends(ctx context.Context, req MusicTrendsRequest) (string, error) {
	firstVideos, firstChannels, err := topListsJSON(req.FirstPeriod)
	if err != nil {
		return "", fmt.Errorf("first period: %w", err)
	}
	lastVideos, lastChannels, err := topListsJSON(req.LastPeriod)
	if err != nil {
		return "", fmt.Errorf("last period: %w", err)
	}

	prompt := buildMusicPrompt(
		req.FirstYear, firstVideos, firstChannels,
		req.LastYear, lastVideos, lastChannels,
	)

	reply, err := g.text.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("compare music trends: %w", err)
	}
	if reply == "" {
		return EmptyMusicAnalysis, nil
	}
	return reply, nil
}

// topListsJSON renders the first ten videos and channels of p for a prompt.
func topListsJSON(p PeriodTop) (videos, channels string, err error) {
	v, err := json.Marshal(compactVideos(p.TopVideos, 10))
	if err != nil {
		return "", "", fmt.Errorf("marshal videos: %w", err)
	}
	c, err := json.Marshal(compactChannels(p.TopChannels, 10))
	if err != nil {
		return "", "", fmt.Errorf("marshal channels: %w", err)
	}
	return string(v), string(c), nil
}

type promptVideo struct {
	Title   string `json:"title"`
	Channel string `json:"channel,omitempty"`
	Count   int    `json:"count"`
}

type promptChannel struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func compactVideos(in []models.VideoCount, n int) []promptVideo {
	out := make([]promptVideo, 0, min(len(in), n))
	for i := 0; i < len(in) && i < n; i++ {
		out = append(out, promptVideo{Title: in[i].Title, Channel: in[i].Channel, Count: in[i].Count})
	}
	return out
}

func compactChannels(in []models.ChannelCount, n int) []promptChannel {
	out := make([]promptChannel, 0, min(len(in), n))
	for i := 0; i < len(in) && i < n; i++ {
		out = append(out, promptChannel{Name: in[i].Name, Count: in[i].Count})
	}
	return out
}

func buildEstimatePrompt(titles string) string {
	return fmt.Sprintf(`Below is a random sample of video titles from one person's YouTube watch history.
Estimate the average number of minutes this person spends on a video.
Shorts (#shorts) usually run under a minute, music videos 3 to 5 minutes, essays and podcasts 20 minutes or more.

Titles:
%s

Reply with a single number of minutes and nothing else.`, titles)
}

func buildHabitsPrompt(total int, dateRange, videos, channels string) string {
	return fmt.Sprintf(`Here is a summary of one person's YouTube watch history:
- Videos watched: %d
- Period covered: %s
- Ten most watched videos: %s
- Ten most watched channels: %s

Write a playful year-in-review style profile of these viewing habits:
1. Invent a "viewer persona" title for this person.
2. Judge whether they lean towards Shorts or long-form content, citing the titles and channels.
3. Give a rough total watch time assuming 10 minutes per video, adjusted if the titles look like Shorts or music.
4. Sprinkle in emojis.`, total, dateRange, videos, channels)
}

func buildMusicPrompt(firstYear int, firstVideos, firstChannels string, lastYear int, lastVideos, lastChannels string) string {
	return fmt.Sprintf(`Describe how one person's music taste on YouTube changed over time.

Their first year, %[1]d:
- Ten most watched videos: %[2]s
- Ten most watched channels: %[3]s

Their most recent year, %[4]d:
- Ten most watched videos: %[5]s
- Ten most watched channels: %[6]s

In your answer:
1. Pick out the music content (artist channels, VEVO, official videos, lyric videos, recognisable genres).
2. Describe their taste in %[1]d.
3. Describe their taste in %[4]d.
4. Compare the two years with concrete examples of what changed and what stayed.
5. Finish with a short, fun summary of the journey, with emojis.`,
		firstYear, firstVideos, firstChannels, lastYear, lastVideos, lastChannels)
}
