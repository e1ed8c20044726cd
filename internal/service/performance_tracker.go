package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/analytics"
	"github.com/yourusername/edgecheck/internal/config"
	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/metrics"
	"github.com/yourusername/edgecheck/internal/models"
	"github.com/yourusername/edgecheck/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// PerformanceTracker settles predictions and aggregates their performance
type PerformanceTracker struct {
	predictions repository.PredictionRepository
	settlements repository.SettlementRepository
	cfg         config.TrackerConfig
	stake       decimal.Decimal
	summaries   *cache.Cache
	summaryMu   sync.Mutex
	generation  uint64
	audit       *logger.AuditLogger
	logger      *logrus.Entry
	now         func() time.Time
}

// NewPerformanceTracker creates a tracker. A zero summary cache TTL computes
// every summary from storage.
func NewPerformanceTracker(
	predictions repository.PredictionRepository,
	settlements repository.SettlementRepository,
	cfg config.TrackerConfig,
	log *logrus.Logger,
) *PerformanceTracker {
	if log == nil {
		log = logrus.New()
	}
	if cfg.TrackingStake <= 0 {
		cfg.TrackingStake = 100
	}
	if cfg.CalibrationBins <= 0 {
		cfg.CalibrationBins = analytics.DefaultCalibrationBins
	}

	var summaries *cache.Cache
	if cfg.SummaryCacheTTLS > 0 {
		ttl := time.Duration(cfg.SummaryCacheTTLS) * time.Second
		summaries = cache.New(ttl, 2*ttl)
	}

	return &PerformanceTracker{
		predictions: predictions,
		settlements: settlements,
		cfg:         cfg,
		stake:       decimal.NewFromFloat(cfg.TrackingStake).Round(2),
		summaries:   summaries,
		audit:       logger.NewAuditLogger(log),
		logger:      log.WithField("component", "performance_tracker"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordPrediction validates and stores a new prediction. A zero id or
// creation time is assigned; the edge is always derived from the probabilities.
func (t *PerformanceTracker) RecordPrediction(ctx context.Context, prediction *models.Prediction) error {
	if prediction == nil {
		return models.NewValidationError("prediction_required", "prediction is required")
	}
	if err := prediction.Validate(); err != nil {
		return err
	}
	if prediction.ID == uuid.Nil {
		prediction.ID = uuid.New()
	}
	if prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = t.now()
	}
	prediction.Edge = models.ComputeEdge(prediction.PredictedProbability, prediction.MarketProbability)

	if err := t.predictions.Insert(ctx, prediction); err != nil {
		return fmt.Errorf("failed to record prediction %s: %w", prediction.ID, err)
	}

	metrics.RecordPrediction(prediction.Category)
	t.audit.LogPredictionRecorded(prediction.ID.String(), prediction.Ticker, prediction.ModelID, prediction.PredictedProbability, prediction.Edge)
	return nil
}

// RecordOutcome attaches the market result to a prediction and derives its
// performance record. Re-sending the same result returns the stored record;
// a different result fails with models.ErrAlreadySettled.
func (t *PerformanceTracker) RecordOutcome(ctx context.Context, predictionID uuid.UUID, actualResult bool, settledAt time.Time) (*models.PerformanceRecord, error) {
	prediction, err := t.predictions.GetByID(ctx, predictionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.RecordOutcome(metrics.OutcomeNotFound, 0)
		}
		return nil, err
	}

	if record, err := t.existingSettlement(ctx, predictionID, actualResult); record != nil || err != nil {
		return record, err
	}

	if settledAt.IsZero() {
		settledAt = t.now()
	}
	outcome := &models.Outcome{
		PredictionID: predictionID,
		ActualResult: actualResult,
		SettledAt:    settledAt.UTC(),
	}
	record := t.deriveRecord(prediction, outcome)

	if err := t.settlements.SaveSettlement(ctx, outcome, record); err != nil {
		if !errors.Is(err, models.ErrDuplicateKey) {
			return nil, fmt.Errorf("failed to settle prediction %s: %w", predictionID, err)
		}
		// a concurrent writer settled first
		existing, err := t.existingSettlement(ctx, predictionID, actualResult)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("settlement of %s vanished after conflict: %w", predictionID, models.ErrNotFound)
		}
		return existing, nil
	}

	t.invalidateSummaries()
	pnl, _ := record.PnL.Float64()
	metrics.RecordOutcome(metrics.OutcomeSettled, pnl)
	t.audit.LogSettlement(predictionID.String(), actualResult, record.IsCorrect, record.PnL.StringFixed(2), outcome.SettledAt)
	return record, nil
}

// UpdateOutcome settles a prediction at the current time
func (t *PerformanceTracker) UpdateOutcome(ctx context.Context, predictionID uuid.UUID, actualResult bool) (*models.PerformanceRecord, error) {
	return t.RecordOutcome(ctx, predictionID, actualResult, t.now())
}

// existingSettlement returns the stored record when the prediction is already
// settled with the same result, nil when it is not settled yet.
func (t *PerformanceTracker) existingSettlement(ctx context.Context, predictionID uuid.UUID, actualResult bool) (*models.PerformanceRecord, error) {
	outcome, record, err := t.settlements.GetSettlement(ctx, predictionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement of %s: %w", predictionID, err)
	}

	if outcome.ActualResult != actualResult {
		metrics.RecordOutcome(metrics.OutcomeConflict, 0)
		t.audit.LogSettlementConflict(predictionID.String(), outcome.ActualResult, actualResult)
		return nil, fmt.Errorf("prediction %s settled as %s: %w", predictionID, outcome.ResultLabel(), models.ErrAlreadySettled)
	}
	metrics.RecordOutcome(metrics.OutcomeDuplicate, 0)
	return record, nil
}

func (t *PerformanceTracker) deriveRecord(prediction *models.Prediction, outcome *models.Outcome) *models.PerformanceRecord {
	correct := prediction.IsCorrect(outcome.ActualResult)
	stake := t.stake

	pnl := stake.Neg()
	if correct {
		payout := decimal.NewFromFloat(prediction.PayoutOdds())
		pnl = stake.Mul(payout.Sub(decimal.NewFromInt(1))).Round(2)
	}
	roi := decimal.Zero
	if stake.IsPositive() {
		roi = pnl.Div(stake).Mul(hundred).Round(4)
	}

	return &models.PerformanceRecord{
		PredictionID:  prediction.ID,
		ActualOutcome: outcome.ActualResult,
		IsCorrect:     correct,
		Stake:         stake,
		PnL:           pnl,
		ROIPercent:    roi,
		BrierScore:    analytics.BrierComponent(prediction.PredictedProbability, outcome.ActualResult),
		LogLoss:       t.logLoss(prediction.PredictedProbability, outcome.ActualResult),
		SettledAt:     outcome.SettledAt,
		CreatedAt:     t.now(),
	}
}

func (t *PerformanceTracker) logLoss(p float64, occurred bool) float64 {
	loss, err := analytics.LogLoss([]float64{p}, analytics.OutcomesFromBools([]bool{occurred}), t.cfg.LogLossEpsilon)
	if err != nil {
		return analytics.LogLossComponent(p, occurred)
	}
	return loss
}

// GetPerformanceSummary aggregates the settled records matching filter.
// It never writes to storage.
func (t *PerformanceTracker) GetPerformanceSummary(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceSummary, error) {
	key := summaryCacheKey(filter)
	if t.summaries != nil {
		if cached, ok := t.summaries.Get(key); ok {
			summary := *cached.(*models.PerformanceSummary)
			return &summary, nil
		}
	}

	generation := t.summaryGeneration()
	settled, err := t.settlements.ListSettled(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list settled predictions: %w", err)
	}

	summary := t.summarize(settled, filter)
	if filter == (models.PerformanceFilter{}) {
		metrics.UpdateSummary(summary.AccuracyPct, summary.AverageBrierScore)
	}
	t.cacheSummary(key, summary, generation)
	t.logger.WithFields(logrus.Fields{
		"settled":   summary.TotalSettled,
		"accuracy":  summary.AccuracyPct,
		"total_pnl": summary.TotalPnL.StringFixed(2),
	}).Debug("Performance summary computed")
	return summary, nil
}

func (t *PerformanceTracker) summaryGeneration() uint64 {
	t.summaryMu.Lock()
	defer t.summaryMu.Unlock()
	return t.generation
}

// cacheSummary stores summary unless a settlement landed after it was loaded
func (t *PerformanceTracker) cacheSummary(key string, summary *models.PerformanceSummary, generation uint64) {
	if t.summaries == nil {
		return
	}
	t.summaryMu.Lock()
	defer t.summaryMu.Unlock()
	if generation != t.generation {
		return
	}
	stored := *summary
	t.summaries.SetDefault(key, &stored)
}

func (t *PerformanceTracker) invalidateSummaries() {
	t.summaryMu.Lock()
	defer t.summaryMu.Unlock()
	t.generation++
	if t.summaries != nil {
		t.summaries.Flush()
	}
}

func (t *PerformanceTracker) summarize(settled []*models.SettledPrediction, filter models.PerformanceFilter) *models.PerformanceSummary {
	summary := &models.PerformanceSummary{
		TotalStaked:  decimal.Zero,
		TotalPnL:     decimal.Zero,
		ROIPercent:   decimal.Zero,
		ProfitFactor: analytics.Finite(0),
		SharpeRatio:  analytics.Undefined(),
		Calibration:  analytics.Calibration{Bins: []analytics.CalibrationBin{}},
		Filter:       filter,
		GeneratedAt:  t.now(),
	}

	predicted := make([]float64, 0, len(settled))
	outcomes := make([]float64, 0, len(settled))
	pnls := make([]float64, 0, len(settled))
	brierSum, logLossSum := 0.0, 0.0
	wins := 0

	for _, sp := range settled {
		if sp == nil || !filter.Matches(sp) {
			continue
		}
		record := sp.Record
		if record == nil {
			record = t.deriveRecord(&sp.Prediction, &sp.Outcome)
		}

		summary.TotalSettled++
		if record.IsCorrect {
			summary.CorrectCount++
		}
		if record.IsWin() {
			wins++
		}
		summary.TotalStaked = summary.TotalStaked.Add(record.Stake)
		summary.TotalPnL = summary.TotalPnL.Add(record.PnL)
		brierSum += record.BrierScore
		logLossSum += record.LogLoss

		pnl, _ := record.PnL.Float64()
		pnls = append(pnls, pnl)
		predicted = append(predicted, sp.Prediction.PredictedProbability)
		outcomes = append(outcomes, boolToOutcome(record.ActualOutcome))
	}

	if summary.TotalSettled == 0 {
		return summary
	}

	n := float64(summary.TotalSettled)
	summary.AccuracyPct = float64(summary.CorrectCount) / n * 100
	summary.WinRate = float64(wins) / n
	summary.AverageBrierScore = brierSum / n
	summary.AverageLogLoss = logLossSum / n
	if summary.TotalStaked.IsPositive() {
		summary.ROIPercent = summary.TotalPnL.Div(summary.TotalStaked).Mul(hundred).Round(4)
	}
	summary.ProfitFactor = analytics.ProfitFactor(pnls)
	// the annual risk-free rate is charged on the tracking stake
	riskFree := t.cfg.RiskFreeRate * t.cfg.TrackingStake
	if sharpe, err := analytics.SharpeRatio(pnls, riskFree, analytics.DefaultPeriodsPerYear); err == nil {
		summary.SharpeRatio = analytics.Finite(sharpe)
	}
	if calibration, err := analytics.CalibrationMetrics(predicted, outcomes, t.cfg.CalibrationBins); err == nil {
		summary.Calibration = calibration
	} else {
		t.logger.WithError(err).Warn("Calibration skipped")
	}
	return summary
}

func summaryCacheKey(filter models.PerformanceFilter) string {
	data, _ := json.Marshal(filter)
	return string(data)
}

func boolToOutcome(occurred bool) float64 {
	if occurred {
		return 1
	}
	return 0
}
