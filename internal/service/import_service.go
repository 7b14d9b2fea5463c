// Package service provides the business logic for importing and analysing watch history.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/metrics"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/parser"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/snapshot"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/stats"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"go.uber.org/zap"
)

// SnapshotNotifier is told about every newly published snapshot.
// *MessagePublisher satisfies it.
type SnapshotNotifier interface {
	PublishSnapshot(ctx context.Context, event models.SnapshotEvent) error
}

// ImportService reads history documents and publishes them as snapshots.
type ImportService struct {
	store    *snapshot.Store
	notifier SnapshotNotifier
	metrics  *metrics.Metrics
	opts     parser.Options
	maxSize  int64
}

// NewImportService creates a new ImportService instance. notifier and m may be nil.
func NewImportService(store *snapshot.Store, notifier SnapshotNotifier, m *metrics.Metrics, opts parser.Options, maxSize int64) *ImportService {
	return &ImportService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		maxSize:  maxSize,
	}
}

// Import reads one document, computes its statistics and replaces the current
// snapshot. On any failure the previous snapshot stays current.
func (s *ImportService) Import(ctx context.Context, source string, r io.Reader) (*models.ImportResponseDTO, error) {
	start := time.Now()

	content, err := s.read(r)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.ObserveImport(metrics.ResultInvalid, 0)
			logger.Log.Warn("History document rejected", zap.String("source", source), zap.Error(err))
		} else {
			s.metrics.ObserveImport(metrics.ResultFailed, 0)
			logger.Log.Error("Failed to read history document", zap.String("source", source), zap.Error(err))
		}
		return nil, err
	}

	res, err := parser.Parse(content, s.opts)
	if err != nil {
		s.metrics.ObserveImport(metrics.ResultInvalid, 0)
		logger.Log.Warn("History document rejected", zap.String("source", source), zap.Error(err))
		return nil, &ValidationError{Message: err.Error()}
	}

	for _, f := range res.Fragments {
		logger.Log.Debug("Skipped malformed fragment",
			zap.Int("offset", f.Offset),
			zap.String("reason", f.Reason),
		)
	}

	if err := ctx.Err(); err != nil {
		s.metrics.ObserveImport(metrics.ResultFailed, 0)
		return nil, &ProcessingError{Message: "import cancelled", Cause: err}
	}

	computed := stats.Compute(res.Entries)
	snap := snapshot.New(source, res.Entries, res.Report, computed)
	s.store.Publish(snap)

	elapsed := time.Since(start)
	s.metrics.ObserveImport(metrics.ResultSuccess, elapsed)
	s.metrics.ObserveReport(res.Report)
	s.metrics.SetSnapshotEntries(snap.Len())

	logger.Log.Info("History imported",
		zap.String("importId", snap.ImportID.String()),
		zap.String("source", source),
		zap.Int("matched", res.Report.Matched),
		zap.Int("accepted", res.Report.Accepted),
		zap.Int("noise", res.Report.Noise),
		zap.Int("invalidDates", res.Report.InvalidDates),
		zap.Int("failures", res.Report.Failures),
		zap.Duration("elapsed", elapsed),
	)

	s.notify(ctx, snap)

	return &models.ImportResponseDTO{
		ImportID:   snap.ImportID,
		Source:     source,
		ImportedAt: snap.ImportedAt,
		Report:     res.Report,
		Stats:      stats.Truncated(computed, stats.DefaultListLimit),
		Duration:   stats.FormatMinutes(float64(computed.EstimatedMinutesDeterministic)),
	}, nil
}

func (s *ImportService) read(r io.Reader) (string, error) {
	if r == nil {
		return "", &ValidationError{Message: parser.ErrEmptyDocument.Error()}
	}

	limited := r
	if s.maxSize > 0 {
		limited = io.LimitReader(r, s.maxSize+1)
	}

	data, err := io.ReadAll(limited)
	if err != nil {
		return "", &ProcessingError{Message: "failed to read document", Cause: err}
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", &ValidationError{Message: fmt.Sprintf("history document exceeds %d bytes", s.maxSize)}
	}
	return string(data), nil
}

// notify is best effort: the snapshot is already current when it runs.
func (s *ImportService) notify(ctx context.Context, snap *snapshot.Snapshot) {
	if s.notifier == nil {
		return
	}

	event := models.SnapshotEvent{
		ImportID:     snap.ImportID,
		Source:       snap.Source,
		PublishedAt:  snap.ImportedAt,
		TotalVideos:  snap.Stats.TotalVideos,
		UniqueVideos: snap.Stats.UniqueVideos,
		FirstDate:    snap.Stats.FirstDate,
		LastDate:     snap.Stats.LastDate,
		Minutes:      snap.Stats.EstimatedMinutesDeterministic,
	}
	if err := s.notifier.PublishSnapshot(ctx, event); err != nil {
		logger.Log.Error("Failed to publish snapshot event",
			zap.Error(err),
			zap.String("importId", snap.ImportID.String()),
		)
	}
}

// Current returns the current snapshot.
func (s *ImportService) Current() (*snapshot.Snapshot, error) {
	return s.store.Current()
}
