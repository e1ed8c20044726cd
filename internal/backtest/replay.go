package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/edgecheck/internal/models"
)

// ErrReplayPanic is returned when the replay loop recovers from a panic
var ErrReplayPanic = errors.New("backtest replay panicked")

// Skip reasons reported to observers
const (
	SkipBelowConfidence = "below_min_confidence"
	SkipBelowEdge       = "below_min_edge"
	SkipNoEdge          = "non_positive_kelly"
	SkipNoStake         = "stake_not_placeable"
)

// ReplayObserver receives replay decisions as they happen
type ReplayObserver interface {
	OnTrade(trade models.Trade)
	OnSkip(prediction *models.Prediction, reason string)
	OnCircuitBreaker(drawdownPct, limitPct float64, remaining int)
}

// Replay runs the strategy over settled predictions in settlement order.
// On error the returned state holds everything processed so far.
func Replay(cfg models.StrategyConfig, records []*models.SettledPrediction) (*BacktestState, error) {
	return replay(cfg, records, time.Now().UTC(), nil)
}

func replay(cfg models.StrategyConfig, records []*models.SettledPrediction, start time.Time, obs ReplayObserver) (state *BacktestState, err error) {
	state = NewBacktestState(cfg.InitialCapital, startTime(records, start))

	defer func() {
		if r := recover(); r != nil {
			state.TerminationReason = models.TerminationError
			err = fmt.Errorf("%w: %v", ErrReplayPanic, r)
		}
	}()

	for i, record := range records {
		if record == nil {
			state.TerminationReason = models.TerminationError
			return state, fmt.Errorf("%w: record %d is nil", models.ErrInvalidRecord, i)
		}
	}

	ordered := append([]*models.SettledPrediction(nil), records...)
	sortForReplay(ordered)

	breaker := NewDrawdownBreaker(cfg.MaxDrawdownPct)

	for i, record := range ordered {
		if err := validateRecord(record); err != nil {
			state.TerminationReason = models.TerminationError
			return state, err
		}
		prediction := &record.Prediction

		if prediction.Confidence < cfg.MinConfidence {
			state.Skipped++
			notifySkip(obs, prediction, SkipBelowConfidence)
			continue
		}
		if prediction.SideEdge() < cfg.MinEdge {
			state.Skipped++
			notifySkip(obs, prediction, SkipBelowEdge)
			continue
		}

		if cfg.HasCircuitBreaker() && breaker.Check(state.DrawdownPct()) {
			state.Halted = true
			state.TerminationReason = models.TerminationCircuitBreaker
			if obs != nil {
				obs.OnCircuitBreaker(state.DrawdownPct(), breaker.Limit(), len(ordered)-i)
			}
			return state, nil
		}

		stake, kelly := PositionSize(cfg, prediction, state.Capital)
		if stake <= 0 {
			state.Skipped++
			reason := SkipNoStake
			if cfg.PositionSizing == models.SizingKelly && kelly <= 0 {
				reason = SkipNoEdge
			}
			notifySkip(obs, prediction, reason)
			continue
		}

		won := prediction.IsCorrect(record.Outcome.ActualResult)
		trade := models.Trade{
			PredictionID:  prediction.ID,
			Ticker:        prediction.Ticker,
			Side:          prediction.PredictedSide(),
			Probability:   prediction.SideProbability(),
			Price:         prediction.SidePrice(),
			PayoutOdds:    prediction.PayoutOdds(),
			KellyFraction: kelly,
			Stake:         stake,
			Won:           won,
			PnL:           SettlementPnL(stake, prediction.PayoutOdds(), won),
			SettledAt:     record.Outcome.SettledAt.UTC(),
		}
		state.ApplyTrade(trade)
		if obs != nil {
			obs.OnTrade(state.Trades[len(state.Trades)-1])
		}
	}

	state.TerminationReason = models.TerminationExhausted
	return state, nil
}

func notifySkip(obs ReplayObserver, prediction *models.Prediction, reason string) {
	if obs != nil {
		obs.OnSkip(prediction, reason)
	}
}

// startTime returns the earliest prediction creation time, or start when
// there is nothing to replay.
func startTime(records []*models.SettledPrediction, start time.Time) time.Time {
	var t0 time.Time
	for _, record := range records {
		if record == nil || record.Prediction.CreatedAt.IsZero() {
			continue
		}
		if t0.IsZero() || record.Prediction.CreatedAt.Before(t0) {
			t0 = record.Prediction.CreatedAt
		}
	}
	if t0.IsZero() {
		return start.UTC()
	}
	return t0.UTC()
}

func sortForReplay(records []*models.SettledPrediction) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Outcome.SettledAt.Equal(b.Outcome.SettledAt) {
			return a.Outcome.SettledAt.Before(b.Outcome.SettledAt)
		}
		if !a.Prediction.CreatedAt.Equal(b.Prediction.CreatedAt) {
			return a.Prediction.CreatedAt.Before(b.Prediction.CreatedAt)
		}
		return a.Prediction.ID.String() < b.Prediction.ID.String()
	})
}

func validateRecord(record *models.SettledPrediction) error {
	if err := record.Prediction.Validate(); err != nil {
		return fmt.Errorf("%w: prediction %s: %v", models.ErrInvalidRecord, record.Prediction.ID, err)
	}
	if record.Outcome.PredictionID != record.Prediction.ID {
		return fmt.Errorf("%w: outcome belongs to %s, not %s", models.ErrInvalidRecord, record.Outcome.PredictionID, record.Prediction.ID)
	}
	if record.Outcome.SettledAt.IsZero() {
		return fmt.Errorf("%w: prediction %s has no settlement time", models.ErrInvalidRecord, record.Prediction.ID)
	}
	return nil
}
