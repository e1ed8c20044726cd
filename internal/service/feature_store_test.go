package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecheck/internal/config"
	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/models"
	"github.com/yourusername/edgecheck/internal/repository"
)

func newTestFeatureStore() *FeatureStore {
	return NewFeatureStore(repository.NewMemoryFeatureRepository(), config.FeatureStoreConfig{CacheTTLSeconds: 60}, logger.Discard())
}

func TestFeatureStoreRoundTrip(t *testing.T) {
	store := newTestFeatureStore()
	ctx := context.Background()

	features := map[string]float64{"volume": 1200, "spread": 0.02}
	require.NoError(t, store.StoreFeatures(ctx, "KX-A", features, "v1", "market"))

	got, err := store.GetFeatures(ctx, "KX-A", "v1", "market")
	require.NoError(t, err)
	assert.Equal(t, features, got)

	// cached reads return copies
	got["volume"] = -1
	again, err := store.GetFeatures(ctx, "KX-A", "v1", "market")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, again["volume"])

	// the caller's map is not retained
	features["spread"] = 9
	again, err = store.GetFeatures(ctx, "KX-A", "v1", "market")
	require.NoError(t, err)
	assert.Equal(t, 0.02, again["spread"])
}

func TestFeatureStoreOverwriteInvalidatesCache(t *testing.T) {
	store := newTestFeatureStore()
	ctx := context.Background()

	require.NoError(t, store.StoreFeatures(ctx, "KX-A", map[string]float64{"a": 1, "b": 2}, "v1", "market"))
	_, err := store.GetFeatures(ctx, "KX-A", "v1", "market")
	require.NoError(t, err)

	require.NoError(t, store.StoreFeatures(ctx, "KX-A", map[string]float64{"c": 3}, "v1", "market"))
	got, err := store.GetFeatures(ctx, "KX-A", "v1", "market")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"c": 3}, got)
}

func TestFeatureStoreTrimsKeysOnEveryPath(t *testing.T) {
	store := newTestFeatureStore()
	ctx := context.Background()

	require.NoError(t, store.StoreFeatures(ctx, "AAPL ", map[string]float64{"x": 1}, " v1.0", "base "))

	for _, entity := range []string{"AAPL ", "AAPL", " AAPL"} {
		got, err := store.GetFeatures(ctx, entity, "v1.0 ", " base")
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"x": 1}, got, "entity %q", entity)
	}

	store.cache.Flush()
	got, err := store.GetFeatures(ctx, "AAPL ", " v1.0", "base ")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"x": 1}, got)

	table, err := store.GetFeaturesAsTable(ctx, " v1.0 ", "base ", nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "AAPL", table.Rows[0].EntityID)
	assert.Equal(t, "v1.0", table.Version)
}

// blockingFeatureRepo holds one Get after it has loaded the stored record
type blockingFeatureRepo struct {
	repository.FeatureRepository
	armed   atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func (r *blockingFeatureRepo) Get(ctx context.Context, key models.FeatureKey) (*models.FeatureRecord, error) {
	record, err := r.FeatureRepository.Get(ctx, key)
	if r.armed.CompareAndSwap(true, false) {
		close(r.loaded)
		<-r.release
	}
	return record, err
}

func TestFeatureStoreReadDuringWriteDoesNotCacheStaleMap(t *testing.T) {
	repo := &blockingFeatureRepo{
		FeatureRepository: repository.NewMemoryFeatureRepository(),
		loaded:            make(chan struct{}),
		release:           make(chan struct{}),
	}
	store := NewFeatureStore(repo, config.FeatureStoreConfig{CacheTTLSeconds: 300}, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.StoreFeatures(ctx, "KX-A", map[string]float64{"x": 1}, "v1", "market"))
	store.cache.Flush()
	repo.armed.Store(true)

	readDone := make(chan map[string]float64, 1)
	go func() {
		got, err := store.GetFeatures(ctx, "KX-A", "v1", "market")
		assert.NoError(t, err)
		readDone <- got
	}()
	<-repo.loaded

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- store.StoreFeatures(ctx, "KX-A", map[string]float64{"x": 2}, "v1", "market")
	}()

	// the write waits for the in-flight load of the same key
	assert.Never(t, func() bool { return len(writeDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(repo.release)
	assert.Equal(t, map[string]float64{"x": 1}, <-readDone)
	require.NoError(t, <-writeDone)

	got, err := store.GetFeatures(ctx, "KX-A", "v1", "market")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"x": 2}, got)
}

func TestFeatureStoreMissingKey(t *testing.T) {
	store := newTestFeatureStore()

	got, err := store.GetFeatures(context.Background(), "nobody", "v1", "market")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFeatureStoreValidation(t *testing.T) {
	store := newTestFeatureStore()
	ctx := context.Background()

	tests := []struct {
		name     string
		entity   string
		features map[string]float64
		version  string
		set      string
	}{
		{"empty entity", " ", map[string]float64{"a": 1}, "v1", "market"},
		{"empty version", "KX-A", map[string]float64{"a": 1}, "", "market"},
		{"empty set", "KX-A", map[string]float64{"a": 1}, "v1", ""},
		{"no features", "KX-A", map[string]float64{}, "v1", "market"},
		{"nil features", "KX-A", nil, "v1", "market"},
		{"blank feature name", "KX-A", map[string]float64{" ": 1}, "v1", "market"},
		{"nan value", "KX-A", map[string]float64{"a": math.NaN()}, "v1", "market"},
		{"infinite value", "KX-A", map[string]float64{"a": math.Inf(1)}, "v1", "market"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.StoreFeatures(ctx, tt.entity, tt.features, tt.version, tt.set)
			require.Error(t, err)
			var validationErr *models.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestFeatureStoreTable(t *testing.T) {
	store := newTestFeatureStore()
	ctx := context.Background()

	require.NoError(t, store.StoreFeatures(ctx, "b", map[string]float64{"x": 2, "y": 20}, "v1", "market"))
	require.NoError(t, store.StoreFeatures(ctx, "a", map[string]float64{"x": 1}, "v1", "market"))
	require.NoError(t, store.StoreFeatures(ctx, "c", map[string]float64{"z": 5}, "v2", "market"))

	table, err := store.GetFeaturesAsTable(ctx, "v1", "market", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{EntityColumn, "x", "y"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "a", table.Rows[0].EntityID)
	assert.Equal(t, 1.0, table.Rows[0].Values[0])
	assert.True(t, math.IsNaN(table.Rows[0].Values[1]))
	assert.Equal(t, []float64{2, 20}, table.Rows[1].Values)

	filtered, err := store.GetFeaturesAsTable(ctx, "v1", "market", map[string]float64{"x": 2})
	require.NoError(t, err)
	require.Len(t, filtered.Rows, 1)
	assert.Equal(t, "b", filtered.Rows[0].EntityID)

	empty, err := store.GetFeaturesAsTable(ctx, "v9", "market", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{EntityColumn}, empty.Columns)
	assert.Empty(t, empty.Rows)

	_, err = store.GetFeaturesAsTable(ctx, "", "market", nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFeatureTableEncoding(t *testing.T) {
	table := &FeatureTable{
		Version:    "v1",
		FeatureSet: "market",
		Columns:    []string{EntityColumn, "x", "y"},
		Rows:       []FeatureRow{{EntityID: "a", Values: []float64{1.5, math.NaN()}}},
	}

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	assert.Equal(t, "entity_id,x,y\na,1.5,NaN\n", buf.String())

	data, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"feature_version": "v1",
		"feature_set": "market",
		"columns": ["entity_id", "x", "y"],
		"rows": [{"entity_id": "a", "values": [1.5, null]}]
	}`, string(data))
}
