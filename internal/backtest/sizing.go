package backtest

import (
	"math"

	"github.com/yourusername/edgecheck/internal/models"
)

// KellyFraction returns the full Kelly fraction f = (b*p - q) / b where b is
// the net payout per unit staked and p the win probability.
func KellyFraction(probability, netOdds float64) float64 {
	if netOdds <= 0 {
		return 0
	}
	q := 1.0 - probability
	return (netOdds*probability - q) / netOdds
}

// PositionSize returns the stake for a prediction under cfg's sizing policy
// and, for kelly sizing, the raw Kelly fraction. A zero stake means no trade.
func PositionSize(cfg models.StrategyConfig, p *models.Prediction, capital float64) (stake, kelly float64) {
	if capital <= 0 {
		return 0, 0
	}
	maxStake := capital * cfg.MaxPositionSizePct / 100

	switch cfg.PositionSizing {
	case models.SizingKelly:
		kelly = KellyFraction(p.SideProbability(), p.PayoutOdds()-1)
		if kelly <= 0 {
			return 0, kelly
		}
		stake = capital * kelly * cfg.KellyFraction
	case models.SizingFixed:
		stake = math.Min(cfg.FixedBetSize, capital)
	case models.SizingProportional:
		stake = maxStake
	default:
		return 0, 0
	}

	stake = roundCents(math.Min(stake, maxStake))
	if stake <= 0 || stake > capital {
		return 0, kelly
	}
	return stake, kelly
}

// SettlementPnL returns the profit of a stake at decimal payout odds
func SettlementPnL(stake, payoutOdds float64, won bool) float64 {
	if won {
		return roundCents(stake * (payoutOdds - 1))
	}
	return -stake
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
