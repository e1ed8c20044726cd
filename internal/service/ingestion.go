package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/datasource"
	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/models"
)

// IngestionService pulls predictions and settlements from a feed and applies
// them through the performance tracker.
type IngestionService struct {
	source     datasource.FeedSource
	tracker    *PerformanceTracker
	validator  *DataValidator
	normalizer *DataNormalizer
	audit      *logger.AuditLogger
	logger     *logrus.Entry
	batchSize  int

	mu                sync.Mutex
	predictionsCursor time.Time
	settlementsCursor time.Time
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	source datasource.FeedSource,
	tracker *PerformanceTracker,
	validator *DataValidator,
	normalizer *DataNormalizer,
	log *logrus.Logger,
	batchSize int,
) *IngestionService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if log == nil {
		log = logrus.New()
	}

	return &IngestionService{
		source:     source,
		tracker:    tracker,
		validator:  validator,
		normalizer: normalizer,
		audit:      logger.NewAuditLogger(log),
		logger:     log.WithField("component", "ingestion"),
		batchSize:  batchSize,
	}
}

// SetCursor sets the point from which the next poll fetches records
func (s *IngestionService) SetCursor(since time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictionsCursor = since
	s.settlementsCursor = since
}

// Poll fetches new predictions, then new settlements, and applies them.
// Predictions go first so settlements in the same poll find them. Polls are
// serialized.
func (s *IngestionService) Poll(ctx context.Context) (*IngestionMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := NewIngestionMetrics()
	if !s.source.IsEnabled() {
		stats.Finish()
		return stats, datasource.ErrFeedDisabled
	}

	predictions, err := s.source.FetchPredictions(ctx, s.predictionsCursor)
	if err != nil {
		stats.Finish()
		return stats, fmt.Errorf("failed to fetch predictions: %w", err)
	}
	for start := 0; start < len(predictions); start += s.batchSize {
		end := min(start+s.batchSize, len(predictions))
		s.predictionsCursor = laterOf(s.predictionsCursor, s.applyPredictions(ctx, predictions[start:end], stats))
	}

	settlements, err := s.source.FetchSettlements(ctx, s.settlementsCursor)
	if err != nil {
		stats.Finish()
		return stats, fmt.Errorf("failed to fetch settlements: %w", err)
	}
	for start := 0; start < len(settlements); start += s.batchSize {
		end := min(start+s.batchSize, len(settlements))
		s.settlementsCursor = laterOf(s.settlementsCursor, s.applySettlements(ctx, settlements[start:end], stats))
	}

	stats.Finish()
	s.audit.LogIngestionBatch(s.source.Name(), stats.PredictionsApplied, stats.SettlementsApplied, stats.Rejected())
	s.logger.WithField("stats", stats.String()).Info("Feed poll complete")
	return stats, nil
}

// applyPredictions stores a batch and returns the latest creation time seen
func (s *IngestionService) applyPredictions(ctx context.Context, batch []datasource.PredictionData, stats *IngestionMetrics) time.Time {
	var latest time.Time
	for i := range batch {
		data := &batch[i]
		if problems := s.validator.ValidatePrediction(data); len(problems) > 0 {
			stats.RecordValidationError(kindPrediction)
			s.logger.WithFields(logrus.Fields{"source_id": data.SourceID, "problems": strings.Join(problems, "; ")}).Warn("Prediction rejected")
			continue
		}
		latest = laterOf(latest, data.CreatedAt)

		prediction, err := s.normalizer.NormalizePrediction(data)
		if err != nil {
			stats.RecordValidationError(kindPrediction)
			s.logger.WithError(err).WithField("source_id", data.SourceID).Warn("Prediction could not be normalized")
			continue
		}

		err = s.tracker.RecordPrediction(ctx, prediction)
		switch {
		case err == nil:
			stats.Record(kindPrediction, statusApplied)
		case errors.Is(err, models.ErrDuplicateKey):
			stats.Record(kindPrediction, statusDuplicate)
		case errors.Is(err, models.ErrValidation):
			stats.RecordValidationError(kindPrediction)
		default:
			stats.RecordError(kindPrediction)
			s.logger.WithError(err).WithField("prediction_id", prediction.ID).Error("Failed to store prediction")
		}
	}
	return latest
}

// applySettlements settles a batch and returns the latest settlement time seen
func (s *IngestionService) applySettlements(ctx context.Context, batch []datasource.SettlementData, stats *IngestionMetrics) time.Time {
	var latest time.Time
	for i := range batch {
		data := &batch[i]
		if problems := s.validator.ValidateSettlement(data); len(problems) > 0 {
			stats.RecordValidationError(kindSettlement)
			s.logger.WithFields(logrus.Fields{"prediction_id": data.PredictionID, "problems": strings.Join(problems, "; ")}).Warn("Settlement rejected")
			continue
		}
		latest = laterOf(latest, data.SettledAt)

		outcome, err := s.normalizer.NormalizeSettlement(data)
		if err != nil {
			stats.RecordValidationError(kindSettlement)
			continue
		}

		settledBefore := s.isSettled(ctx, outcome)
		_, err = s.tracker.RecordOutcome(ctx, outcome.PredictionID, outcome.ActualResult, outcome.SettledAt)
		switch {
		case err == nil && settledBefore:
			stats.Record(kindSettlement, statusDuplicate)
		case err == nil:
			stats.Record(kindSettlement, statusApplied)
		case errors.Is(err, models.ErrAlreadySettled):
			stats.RecordConflict()
		default:
			stats.RecordError(kindSettlement)
			s.logger.WithError(err).WithField("prediction_id", outcome.PredictionID).Warn("Failed to settle prediction")
		}
	}
	return latest
}

func (s *IngestionService) isSettled(ctx context.Context, outcome *models.Outcome) bool {
	_, _, err := s.tracker.settlements.GetSettlement(ctx, outcome.PredictionID)
	return err == nil
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
