package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/metrics"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/service/insight"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/snapshot"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/stats"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Insight operation names, used for statuses and metrics.
const (
	OperationHabits = "habits"
	OperationMusic  = "music"
)

const insightTopN = 10

// SingleYearMusicMessage is returned instead of a comparison when all entries share one year.
const SingleYearMusicMessage = "Music trend analysis requires at least two different years of data to compare. Your history only contains data for %d."

// InsightOptions tunes the insight service.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type InsightOptions struct {
	SampleSize            int
	DefaultAverageMinutes float64
	MaxConcurrent         int64
	RatePerSecond         float64
	Burst                 int
	Timeout               time.Duration
	Location              *time.Location
}

type operationState struct {
	importID uuid.UUID
	status   models.AnalysisStatus
}

// InsightService runs AI analyses over the current snapshot.
type InsightService struct {
	store     *snapshot.Store
	generator insight.Generator
	metrics   *metrics.Metrics
	opts      InsightOptions
	sem       *semaphore.Weighted
	limiter   *rate.Limiter

	mu     sync.Mutex
	states map[string]operationState
}

// NewInsightService creates a new InsightService. generator may be nil, in
// which case every analysis fails with ErrInsightsDisabled.
func NewInsightService(store *snapshot.Store, generator insight.Generator, m *metrics.Metrics, opts InsightOptions) *InsightService {
	if opts.SampleSize <= 0 {
		opts.SampleSize = 30
	}
	if opts.DefaultAverageMinutes <= 0 {
		opts.DefaultAverageMinutes = 10
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	return &InsightService{
		store:     store,
		generator: generator,
		metrics:   m,
		opts:      opts,
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
		limiter:   rate.NewLimiter(limit, opts.Burst),
		states:    make(map[string]operationState),
	}
}

// Enabled reports whether a generator is configured.
func (s *InsightService) Enabled() bool {
	return s.generator != nil
}

// Status reports the state of operation for the current snapshot. An analysis
// run against an older snapshot reads as IDLE.
func (s *InsightService) Status(operation string) models.AnalysisStatus {
	snap, err := s.store.Current()
	if err != nil {
		return models.AnalysisStatusIdle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[operation]
	if !ok || st.importID != snap.ImportID {
		return models.AnalysisStatusIdle
	}
	return st.status
}

// AnalyzeHabits estimates AI-assisted watch time and asks for a persona summary.
// A failed duration estimate falls back to the default average; a failed
// summary fails the whole analysis.
func (s *InsightService) AnalyzeHabits(ctx context.Context) (*models.HabitsInsightDTO, error) {
	snap, err := s.begin(ctx, OperationHabits)
	if err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	entries := snap.Entries()

	avg, usedDefault := s.averageMinutes(ctx, entries)
	estimated := int(math.Round(float64(snap.Stats.TotalVideos) * avg))
	dateRange := stats.DateRange(snap.Stats, s.opts.Location)
	top := stats.Top(entries, insightTopN)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	analysis, err := s.generator.SummarizeHabits(callCtx, insight.HabitsRequest{
		TopVideos:   top.Videos,
		TopChannels: top.Channels,
		TotalCount:  snap.Stats.TotalVideos,
		DateRange:   dateRange,
	})
	if err != nil {
		return nil, s.fail(snap, OperationHabits, start, err)
	}

	s.finish(snap, OperationHabits, start)

	return &models.HabitsInsightDTO{
		Status:              models.AnalysisStatusComplete,
		Analysis:            analysis,
		AverageMinutes:      avg,
		EstimatedMinutesAI:  estimated,
		EstimatedDurationAI: stats.FormatMinutes(float64(estimated)),
		DateRange:           dateRange,
		UsedDefaultAverage:  usedDefault,
		CompletedAt:         time.Now(),
	}, nil
}

// AnalyzeMusicTrends compares the top lists of the first and last calendar
// year. A history spanning one year is answered locally without a model call.
func (s *InsightService) AnalyzeMusicTrends(ctx context.Context) (*models.MusicInsightDTO, error) {
	snap, err := s.begin(ctx, OperationMusic)
	if err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	entries := snap.Entries()

	years := stats.Years(entries, s.opts.Location)
	if len(years) == 0 {
		s.setState(snap, OperationMusic, models.AnalysisStatusIdle)
		return nil, &ValidationError{Message: "history contains no entries to compare"}
	}
	firstYear, lastYear := years[len(years)-1], years[0]

	if firstYear == lastYear {
		s.finish(snap, OperationMusic, start)
		return &models.MusicInsightDTO{
			Status:      models.AnalysisStatusComplete,
			Analysis:    fmt.Sprintf(SingleYearMusicMessage, firstYear),
			FirstYear:   firstYear,
			LastYear:    lastYear,
			Skipped:     true,
			CompletedAt: time.Now(),
		}, nil
	}

	first := stats.Top(stats.ForYear(entries, firstYear, s.opts.Location), insightTopN)
	last := stats.Top(stats.ForYear(entries, lastYear, s.opts.Location), insightTopN)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	analysis, err := s.generator.CompareMusicTrends(callCtx, insight.MusicTrendsRequest{
		FirstPeriod: insight.PeriodTop{TopVideos: first.Videos, TopChannels: first.Channels},
		LastPeriod:  insight.PeriodTop{TopVideos: last.Videos, TopChannels: last.Channels},
		FirstYear:   firstYear,
		LastYear:    lastYear,
	})
	if err != nil {
		return nil, s.fail(snap, OperationMusic, start, err)
	}

	s.finish(snap, OperationMusic, start)

	return &models.MusicInsightDTO{
		Status:      models.AnalysisStatusComplete,
		Analysis:    analysis,
		FirstYear:   firstYear,
		LastYear:    lastYear,
		CompletedAt: time.Now(),
	}, nil
}

// begin loads the snapshot and takes a concurrency slot. The caller releases it.
func (s *InsightService) begin(ctx context.Context, operation string) (*snapshot.Snapshot, error) {
	if s.generator == nil {
		return nil, ErrInsightsDisabled
	}

	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, &InsightError{Operation: operation, Cause: err}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		s.sem.Release(1)
		return nil, &InsightError{Operation: operation, Cause: err}
	}

	s.setState(snap, operation, models.AnalysisStatusAnalyzing)
	logger.Log.Info("Insight analysis started",
		zap.String("operation", operation),
		zap.String("importId", snap.ImportID.String()),
	)
	return snap, nil
}

func (s *InsightService) finish(snap *snapshot.Snapshot, operation string, start time.Time) {
	s.setState(snap, operation, models.AnalysisStatusComplete)
	s.metrics.ObserveInsight(operation, "complete", time.Since(start))
	logger.Log.Info("Insight analysis completed",
		zap.String("operation", operation),
		zap.String("importId", snap.ImportID.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *InsightService) fail(snap *snapshot.Snapshot, operation string, start time.Time, cause error) error {
	s.setState(snap, operation, models.AnalysisStatusError)
	s.metrics.ObserveInsight(operation, "error", time.Since(start))
	logger.Log.Error("Insight analysis failed",
		zap.String("operation", operation),
		zap.String("importId", snap.ImportID.String()),
		zap.Error(cause),
	)
	return &InsightError{Operation: operation, Cause: cause}
}

func (s *InsightService) setState(snap *snapshot.Snapshot, operation string, status models.AnalysisStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[operation] = operationState{importID: snap.ImportID, status: status}
}

// averageMinutes asks the generator for minutes per video over a random title
// sample and reports whether the default had to be used instead.
func (s *InsightService) averageMinutes(ctx context.Context, entries []models.VideoEntry) (float64, bool) {
	titles := sampleTitles(entries, s.opts.SampleSize)
	if len(titles) == 0 {
		return s.opts.DefaultAverageMinutes, true
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	avg, err := s.generator.EstimateAverageDuration(callCtx, titles)
	switch {
	case err != nil:
		level := zap.WarnLevel
		if errors.Is(err, insight.ErrEmptyEstimate) {
			level = zap.InfoLevel
		}
		logger.Log.Log(level, "Falling back to default average duration",
			zap.Error(err),
			zap.Float64("defaultMinutes", s.opts.DefaultAverageMinutes),
		)
		return s.opts.DefaultAverageMinutes, true
	case avg <= 0 || math.IsNaN(avg) || math.IsInf(avg, 0):
		return s.opts.DefaultAverageMinutes, true
	}
	return avg, false
}

// sampleTitles picks up to n titles uniformly without replacement.
func sampleTitles(entries []models.VideoEntry, n int) []string {
	if n > len(entries) {
		n = len(entries)
	}
	titles := make([]string, 0, n)
	for _, i := range rand.Perm(len(entries))[:n] {
		titles = append(titles, entries[i].Title)
	}
	return titles
}
