package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecheck/internal/config"
)

func testHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 1
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 0
	cfg.CircuitBreakerMax = 2
	return NewRateLimitedHTTPClient(cfg, nil)
}

func newFeedServer(t *testing.T, handler http.HandlerFunc) (*FeedClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewFeedClient(testHTTPClient(), config.FeedConfig{
		Enabled: true,
		BaseURL: server.URL + "/",
		APIKey:  "feed-key",
	})
	return client, server
}

func TestFeedClientFetchPredictions(t *testing.T) {
	since := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	market := 0.45

	client, _ := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions", r.URL.Path)
		assert.Equal(t, "2025-03-01T12:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer feed-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]PredictionData{{
			SourceID:             "7d9f7a32-6a43-4c4e-9a0a-4d1f0c4a9b01",
			Ticker:               "KX-RATES",
			PredictedProbability: 0.62,
			MarketProbability:    &market,
			Confidence:           70,
			CreatedAt:            since,
		}})
	})

	predictions, err := client.FetchPredictions(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, predictions, 1)
	assert.Equal(t, "KX-RATES", predictions[0].Ticker)
	require.NotNil(t, predictions[0].MarketProbability)
	assert.Equal(t, 0.45, *predictions[0].MarketProbability)
}

func TestFeedClientFetchSettlements(t *testing.T) {
	client, _ := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settlements", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`[{"prediction_id":"abc","result":"yes","settled_at":"2025-03-02T00:00:00Z"}]`))
	})

	settlements, err := client.FetchSettlements(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, settlements, 1)
	assert.Equal(t, "yes", settlements[0].Result)
}

func TestFeedClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, "", ErrCodeAuthenticationFailed},
		{"bad request", http.StatusBadRequest, "nope", ErrCodeServerError},
		{"malformed body", http.StatusOK, "{not json", ErrCodeInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.FetchPredictions(context.Background(), time.Time{})
			require.Error(t, err)
			var dsErr DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.code, dsErr.Code)
		})
	}
}

func TestFeedClientDisabled(t *testing.T) {
	client := NewFeedClient(testHTTPClient(), config.FeedConfig{Enabled: false, BaseURL: "http://localhost:1"})

	assert.False(t, client.IsEnabled())
	_, err := client.FetchSettlements(context.Background(), time.Time{})
	assert.True(t, errors.Is(err, ErrFeedDisabled))
}

func TestRateLimitedHTTPClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testHTTPClient()
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRateLimitedHTTPClientCircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testHTTPClient()
	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), server.URL)
		require.Error(t, err)
	}
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")

	client.Reset()
	assert.False(t, client.IsOpen())
}

func TestHTTPClientConfigFromFeed(t *testing.T) {
	cfg := HTTPClientConfigFromFeed(config.FeedConfig{TimeoutSeconds: 5, RetryAttempts: 2, RateLimit: 3})

	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 3.0, cfg.RateLimit)
}

func TestOddsConversions(t *testing.T) {
	p, err := ImpliedProbability(2.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)

	_, err = ImpliedProbability(1)
	assert.Error(t, err)

	odds, err := DecimalOdds(0.25)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, odds, 1e-12)

	yes, err := NormalizeOverround(1.8, 2.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, yes, 1e-9)
}
