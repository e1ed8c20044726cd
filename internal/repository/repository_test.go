package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecheck/internal/database"
	"github.com/yourusername/edgecheck/internal/models"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// backends returns every repository implementation the contract tests run against
func backends(t *testing.T) map[string]func(t *testing.T) *Repositories {
	return map[string]func(t *testing.T) *Repositories{
		"memory": func(t *testing.T) *Repositories { return NewMemoryRepositories() },
		"postgres": func(t *testing.T) *Repositories {
			db := database.SetupTestDB(t)
			repos, err := NewRepositories(db)
			require.NoError(t, err)
			return repos
		},
	}
}

func newPrediction(ticker string, created time.Time) *models.Prediction {
	return &models.Prediction{
		ID:                   uuid.New(),
		Ticker:               ticker,
		Category:             "politics",
		ModelID:              "m1",
		PredictedProbability: 0.6,
		MarketProbability:    0.45,
		Confidence:           70,
		Edge:                 models.ComputeEdge(0.6, 0.45),
		CreatedAt:            created,
	}
}

func newSettlement(p *models.Prediction, occurred bool, settled time.Time) (*models.Outcome, *models.PerformanceRecord) {
	o := &models.Outcome{PredictionID: p.ID, ActualResult: occurred, SettledAt: settled}
	rec := &models.PerformanceRecord{
		PredictionID:  p.ID,
		ActualOutcome: occurred,
		IsCorrect:     p.IsCorrect(occurred),
		Stake:         decimal.NewFromInt(100),
		PnL:           decimal.RequireFromString("122.22"),
		ROIPercent:    decimal.RequireFromString("122.2222"),
		BrierScore:    0.16,
		LogLoss:       0.5108,
		SettledAt:     settled,
		CreatedAt:     settled,
	}
	return o, rec
}

func TestPredictionRepository(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repos := setup(t)
			ctx := context.Background()

			p := newPrediction("ELECTION-24", baseTime)
			require.NoError(t, repos.Prediction.Insert(ctx, p))
			assert.ErrorIs(t, repos.Prediction.Insert(ctx, p), models.ErrDuplicateKey)

			got, err := repos.Prediction.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.Ticker, got.Ticker)
			assert.InDelta(t, p.Edge, got.Edge, 1e-9)

			_, err = repos.Prediction.GetByID(ctx, uuid.New())
			assert.ErrorIs(t, err, models.ErrNotFound)

			later := newPrediction("LATER", baseTime.Add(time.Hour))
			require.NoError(t, repos.Prediction.Insert(ctx, later))

			list, err := repos.Prediction.ListSince(ctx, baseTime.Add(time.Minute), 10)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, later.ID, list[0].ID)
		})
	}
}

func TestSettlementRepository(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repos := setup(t)
			ctx := context.Background()

			first := newPrediction("A", baseTime)
			second := newPrediction("B", baseTime.Add(-time.Hour))
			second.Category = "sports"
			for _, p := range []*models.Prediction{first, second} {
				require.NoError(t, repos.Prediction.Insert(ctx, p))
			}

			o1, r1 := newSettlement(first, true, baseTime.Add(48*time.Hour))
			o2, r2 := newSettlement(second, false, baseTime.Add(24*time.Hour))
			require.NoError(t, repos.Settlement.SaveSettlement(ctx, o1, r1))
			require.NoError(t, repos.Settlement.SaveSettlement(ctx, o2, r2))
			assert.ErrorIs(t, repos.Settlement.SaveSettlement(ctx, o1, r1), models.ErrDuplicateKey)

			outcome, rec, err := repos.Settlement.GetSettlement(ctx, first.ID)
			require.NoError(t, err)
			assert.True(t, outcome.ActualResult)
			assert.True(t, rec.PnL.Equal(decimal.RequireFromString("122.22")))

			_, _, err = repos.Settlement.GetSettlement(ctx, uuid.New())
			assert.ErrorIs(t, err, models.ErrNotFound)

			all, err := repos.Settlement.ListSettled(ctx, models.PerformanceFilter{})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, second.ID, all[0].Prediction.ID, "ordered by settlement time")
			require.NotNil(t, all[0].Record)

			filtered, err := repos.Settlement.ListSettled(ctx, models.PerformanceFilter{Category: "sports"})
			require.NoError(t, err)
			require.Len(t, filtered, 1)
			assert.Equal(t, second.ID, filtered[0].Prediction.ID)

			from := baseTime.Add(48 * time.Hour)
			ranged, err := repos.Settlement.ListSettled(ctx, models.PerformanceFilter{From: &from})
			require.NoError(t, err)
			require.Len(t, ranged, 1)
			assert.Equal(t, first.ID, ranged[0].Prediction.ID)
		})
	}
}

func TestMemorySettlementRequiresPrediction(t *testing.T) {
	repos := NewMemoryRepositories()
	o, rec := newSettlement(newPrediction("GHOST", baseTime), true, baseTime)
	assert.ErrorIs(t, repos.Settlement.SaveSettlement(context.Background(), o, rec), models.ErrNotFound)
}

func TestMemorySettlementConcurrentInsert(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	p := newPrediction("RACE", baseTime)
	require.NoError(t, repos.Prediction.Insert(ctx, p))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, rec := newSettlement(p, true, baseTime)
			if err := repos.Settlement.SaveSettlement(ctx, o, rec); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestBacktestRunRepository(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repos := setup(t)
			ctx := context.Background()

			limit := 25.0
			run := models.NewBacktestRun("kelly-quarter", models.StrategyConfig{
				InitialCapital:     1000,
				PositionSizing:     models.SizingKelly,
				KellyFraction:      0.25,
				MaxPositionSizePct: 10,
				MaxDrawdownPct:     &limit,
			}, baseTime)
			require.NoError(t, repos.BacktestRun.Save(ctx, run))

			require.NoError(t, run.Transition(models.RunStatusRunning, baseTime))
			require.NoError(t, run.Transition(models.RunStatusCompleted, baseTime.Add(time.Second)))
			run.Result = &models.BacktestResult{TotalTrades: 3, FinalCapital: 1100, EquityCurve: []models.EquityPoint{{Time: baseTime, Capital: 1000}}}
			require.NoError(t, repos.BacktestRun.Save(ctx, run))

			got, err := repos.BacktestRun.GetByID(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusCompleted, got.Status)
			require.NotNil(t, got.Result)
			assert.Equal(t, 3, got.Result.TotalTrades)
			require.NotNil(t, got.Config.MaxDrawdownPct)
			assert.InDelta(t, 25.0, *got.Config.MaxDrawdownPct, 1e-12)

			older := models.NewBacktestRun("older", run.Config, baseTime.Add(-time.Hour))
			require.NoError(t, repos.BacktestRun.Save(ctx, older))

			latest, err := repos.BacktestRun.GetLatest(ctx, 1)
			require.NoError(t, err)
			require.Len(t, latest, 1)
			assert.Equal(t, run.ID, latest[0].ID)

			_, err = repos.BacktestRun.GetByID(ctx, uuid.New())
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestFeatureRepository(t *testing.T) {
	for name, setup := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repos := setup(t)
			ctx := context.Background()

			rec := &models.FeatureRecord{
				EntityID: "e2", FeatureVersion: "v1", FeatureSet: "base",
				Features: map[string]float64{"a": 1, "b": 2}, CreatedAt: baseTime,
			}
			require.NoError(t, repos.Feature.Upsert(ctx, rec))

			rec.Features = map[string]float64{"c": 3}
			require.NoError(t, repos.Feature.Upsert(ctx, rec))

			got, err := repos.Feature.Get(ctx, rec.Key())
			require.NoError(t, err)
			assert.Equal(t, map[string]float64{"c": 3}, got.Features, "upsert replaces the whole map")

			other := &models.FeatureRecord{
				EntityID: "e1", FeatureVersion: "v1", FeatureSet: "base",
				Features: map[string]float64{"a": 5}, CreatedAt: baseTime,
			}
			require.NoError(t, repos.Feature.Upsert(ctx, other))
			require.NoError(t, repos.Feature.Upsert(ctx, &models.FeatureRecord{
				EntityID: "e3", FeatureVersion: "v2", FeatureSet: "base",
				Features: map[string]float64{"a": 9}, CreatedAt: baseTime,
			}))

			list, err := repos.Feature.ListBySet(ctx, "v1", "base")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "e1", list[0].EntityID)
			assert.Equal(t, "e2", list[1].EntityID)

			_, err = repos.Feature.Get(ctx, models.FeatureKey{EntityID: "zz", FeatureVersion: "v1", FeatureSet: "base"})
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}
