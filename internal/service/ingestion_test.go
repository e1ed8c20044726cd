package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecheck/internal/datasource"
	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/models"
)

type mockFeedSource struct {
	mock.Mock
}

func (m *mockFeedSource) FetchPredictions(ctx context.Context, since time.Time) ([]datasource.PredictionData, error) {
	args := m.Called(ctx, since)
	data, _ := args.Get(0).([]datasource.PredictionData)
	return data, args.Error(1)
}

func (m *mockFeedSource) FetchSettlements(ctx context.Context, since time.Time) ([]datasource.SettlementData, error) {
	args := m.Called(ctx, since)
	data, _ := args.Get(0).([]datasource.SettlementData)
	return data, args.Error(1)
}

func (m *mockFeedSource) Name() string { return "mock" }

func (m *mockFeedSource) IsEnabled() bool {
	return m.Called().Bool(0)
}

func newTestIngestion(t *testing.T, source datasource.FeedSource, batchSize int) (*IngestionService, *PerformanceTracker) {
	t.Helper()
	tracker, _ := newTestTracker(t, 0)
	svc := NewIngestionService(source, tracker, newTestValidator(), NewDataNormalizer(), logger.Discard(), batchSize)
	return svc, tracker
}

func TestIngestionPoll(t *testing.T) {
	first := validFeedPrediction()
	second := validFeedPrediction()
	second.CreatedAt = feedTime.Add(10 * time.Minute)
	second.MarketProbability = nil
	second.YesOdds, second.NoOdds = floatPtr(1.8), floatPtr(2.2)
	invalid := validFeedPrediction()
	invalid.PredictedProbability = 1.5
	invalid.CreatedAt = feedTime.Add(30 * time.Minute)

	settlements := []datasource.SettlementData{
		{PredictionID: first.SourceID, Result: "yes", SettledAt: feedTime.Add(time.Hour)},
		{PredictionID: first.SourceID, Result: "yes", SettledAt: feedTime.Add(time.Hour)},
		{PredictionID: second.SourceID, Result: "no", SettledAt: feedTime.Add(50 * time.Minute)},
		{PredictionID: second.SourceID, Result: "yes", SettledAt: feedTime.Add(50 * time.Minute)},
		{PredictionID: uuid.NewString(), Result: "no", SettledAt: feedTime.Add(time.Hour)},
		{PredictionID: "junk", Result: "no", SettledAt: feedTime},
	}

	source := &mockFeedSource{}
	source.On("IsEnabled").Return(true)
	source.On("FetchPredictions", mock.Anything, time.Time{}).
		Return([]datasource.PredictionData{first, second, first, invalid}, nil).Once()
	source.On("FetchSettlements", mock.Anything, time.Time{}).Return(settlements, nil).Once()

	svc, tracker := newTestIngestion(t, source, 2)
	stats, err := svc.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PredictionsApplied)
	assert.Equal(t, 1, stats.PredictionDuplicates)
	assert.Equal(t, 2, stats.SettlementsApplied)
	assert.Equal(t, 1, stats.SettlementDuplicates)
	assert.Equal(t, 2, stats.ValidationErrors)
	assert.Equal(t, 1, stats.Conflicts)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 4, stats.Rejected())

	summary, err := tracker.GetPerformanceSummary(context.Background(), models.PerformanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalSettled)
	source.AssertExpectations(t)

	// the next poll resumes from the latest valid timestamps
	source.On("FetchPredictions", mock.Anything, second.CreatedAt).Return(nil, nil).Once()
	source.On("FetchSettlements", mock.Anything, feedTime.Add(time.Hour)).Return(nil, nil).Once()
	stats, err = svc.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.PredictionsApplied)
	source.AssertExpectations(t)
}

func TestIngestionPollDisabled(t *testing.T) {
	source := &mockFeedSource{}
	source.On("IsEnabled").Return(false)

	svc, _ := newTestIngestion(t, source, 10)
	_, err := svc.Poll(context.Background())
	assert.ErrorIs(t, err, datasource.ErrFeedDisabled)
	source.AssertNotCalled(t, "FetchPredictions", mock.Anything, mock.Anything)
}

func TestIngestionPollFetchError(t *testing.T) {
	feedErr := datasource.NewDataSourceError("mock", datasource.ErrCodeServerError, "boom", nil)

	source := &mockFeedSource{}
	source.On("IsEnabled").Return(true)
	source.On("FetchPredictions", mock.Anything, mock.Anything).Return(nil, feedErr)

	svc, _ := newTestIngestion(t, source, 10)
	_, err := svc.Poll(context.Background())
	require.Error(t, err)

	var dsErr datasource.DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, datasource.ErrCodeServerError, dsErr.Code)
	source.AssertNotCalled(t, "FetchSettlements", mock.Anything, mock.Anything)
}

func TestIngestionSetCursor(t *testing.T) {
	since := feedTime.Add(-24 * time.Hour)

	source := &mockFeedSource{}
	source.On("IsEnabled").Return(true)
	source.On("FetchPredictions", mock.Anything, since).Return(nil, nil).Once()
	source.On("FetchSettlements", mock.Anything, since).Return(nil, nil).Once()

	svc, _ := newTestIngestion(t, source, 10)
	svc.SetCursor(since)
	_, err := svc.Poll(context.Background())
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestIngestionMetricsString(t *testing.T) {
	stats := NewIngestionMetrics()
	stats.Record(kindPrediction, statusApplied)
	stats.RecordConflict()
	stats.Finish()

	assert.Contains(t, stats.String(), "Predictions=1")
	assert.Contains(t, stats.String(), "Conflicts=1")
	assert.Equal(t, 1, stats.Rejected())

	stats.Reset()
	assert.Zero(t, stats.PredictionsApplied)
	assert.Zero(t, stats.Rejected())
}
