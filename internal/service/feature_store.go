package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/config"
	"github.com/yourusername/edgecheck/internal/logger"
	"github.com/yourusername/edgecheck/internal/metrics"
	"github.com/yourusername/edgecheck/internal/models"
	"github.com/yourusername/edgecheck/internal/repository"
)

// EntityColumn is the first column of every feature table
const EntityColumn = "entity_id"

const featureLockStripes = 64

// FeatureStore persists versioned feature snapshots behind a read cache.
// Cache loads and writes on the same key are serialized by a striped lock.
type FeatureStore struct {
	repo     repository.FeatureRepository
	cache    *cache.Cache
	locks    [featureLockStripes]sync.RWMutex
	validate *validator.Validate
	audit    *logger.AuditLogger
	now      func() time.Time
}

// featureKey trims surrounding whitespace from every key part
func featureKey(entityID, version, featureSet string) models.FeatureKey {
	return models.FeatureKey{
		EntityID:       strings.TrimSpace(entityID),
		FeatureVersion: strings.TrimSpace(version),
		FeatureSet:     strings.TrimSpace(featureSet),
	}
}

func (s *FeatureStore) lockFor(key string) *sync.RWMutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%featureLockStripes]
}

// NewFeatureStore creates a feature store with the configured cache TTLs
func NewFeatureStore(repo repository.FeatureRepository, cfg config.FeatureStoreConfig, log *logrus.Logger) *FeatureStore {
	if log == nil {
		log = logrus.New()
	}
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cleanup := time.Duration(cfg.CacheCleanupSeconds) * time.Second
	if cleanup <= 0 {
		cleanup = 2 * ttl
	}

	return &FeatureStore{
		repo:     repo,
		cache:    cache.New(ttl, cleanup),
		validate: validator.New(),
		audit:    logger.NewAuditLogger(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StoreFeatures replaces the whole feature map stored under the key.
// Key parts are trimmed, as they are on every read.
func (s *FeatureStore) StoreFeatures(ctx context.Context, entityID string, features map[string]float64, version, featureSet string) error {
	key := featureKey(entityID, version, featureSet)
	record := &models.FeatureRecord{
		EntityID:       key.EntityID,
		FeatureVersion: key.FeatureVersion,
		FeatureSet:     key.FeatureSet,
		Features:       models.CopyFeatures(features),
		CreatedAt:      s.now(),
	}
	if err := s.validateRecord(record); err != nil {
		return err
	}

	cacheKey := key.String()
	lock := s.lockFor(cacheKey)
	lock.Lock()
	if err := s.repo.Upsert(ctx, record); err != nil {
		s.cache.Delete(cacheKey)
		lock.Unlock()
		return fmt.Errorf("failed to store features for %s: %w", key, err)
	}
	s.cache.SetDefault(cacheKey, models.CopyFeatures(record.Features))
	lock.Unlock()

	metrics.RecordFeatureWrite(record.FeatureSet)
	s.audit.LogFeatureWrite(record.EntityID, record.FeatureVersion, record.FeatureSet, len(record.Features))
	return nil
}

func (s *FeatureStore) validateRecord(record *models.FeatureRecord) error {
	if err := s.validate.Struct(record); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return models.NewValidationError("invalid_"+strings.ToLower(fe.Field()), fmt.Sprintf("%s failed '%s'", fe.Field(), fe.Tag()))
		}
		return models.NewValidationError("invalid_features", err.Error())
	}
	for name, value := range record.Features {
		if strings.TrimSpace(name) == "" {
			return models.NewValidationError("invalid_feature_name", "feature names must not be empty")
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return models.NewValidationError("invalid_feature_value", fmt.Sprintf("feature %q must be finite", name))
		}
	}
	return nil
}

// GetFeatures returns a copy of the stored feature map, or nil when the key
// has never been written.
func (s *FeatureStore) GetFeatures(ctx context.Context, entityID, version, featureSet string) (map[string]float64, error) {
	key := featureKey(entityID, version, featureSet)
	cacheKey := key.String()

	if cached, ok := s.cache.Get(cacheKey); ok {
		metrics.RecordFeatureCacheLookup(true)
		return models.CopyFeatures(cached.(map[string]float64)), nil
	}
	metrics.RecordFeatureCacheLookup(false)

	lock := s.lockFor(cacheKey)
	lock.RLock()
	defer lock.RUnlock()

	record, err := s.repo.Get(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load features for %s: %w", key, err)
	}

	s.cache.SetDefault(cacheKey, models.CopyFeatures(record.Features))
	return models.CopyFeatures(record.Features), nil
}

// FeatureRow is one entity of a feature table. Missing features are NaN.
type FeatureRow struct {
	EntityID string
	Values   []float64
}

// MarshalJSON encodes missing values as null
func (r FeatureRow) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(r.Values))
	for i := range r.Values {
		if !math.IsNaN(r.Values[i]) {
			v := r.Values[i]
			values[i] = &v
		}
	}
	return json.Marshal(struct {
		EntityID string     `json:"entity_id"`
		Values   []*float64 `json:"values"`
	}{EntityID: r.EntityID, Values: values})
}

// FeatureTable is the bulk export of one feature version/set
type FeatureTable struct {
	Version    string       `json:"feature_version"`
	FeatureSet string       `json:"feature_set"`
	Columns    []string     `json:"columns"`
	Rows       []FeatureRow `json:"rows"`
}

// GetFeaturesAsTable exports every entity of a version/set. When filter is
// set only entities whose features equal every filter value are included.
// Filters compare numeric feature values only, so a category filter needs
// the category stored as a numeric feature (e.g. a one-hot column).
func (s *FeatureStore) GetFeaturesAsTable(ctx context.Context, version, featureSet string, filter map[string]float64) (*FeatureTable, error) {
	version, featureSet = strings.TrimSpace(version), strings.TrimSpace(featureSet)
	if version == "" || featureSet == "" {
		return nil, models.NewValidationError("invalid_feature_key", "feature version and set are required")
	}

	records, err := s.repo.ListBySet(ctx, version, featureSet)
	if err != nil {
		return nil, fmt.Errorf("failed to list features for %s/%s: %w", featureSet, version, err)
	}

	matched := make([]*models.FeatureRecord, 0, len(records))
	names := map[string]struct{}{}
	for _, record := range records {
		if !matchesFeatureFilter(record.Features, filter) {
			continue
		}
		matched = append(matched, record)
		for name := range record.Features {
			names[name] = struct{}{}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EntityID < matched[j].EntityID })

	featureNames := make([]string, 0, len(names))
	for name := range names {
		featureNames = append(featureNames, name)
	}
	sort.Strings(featureNames)

	table := &FeatureTable{
		Version:    version,
		FeatureSet: featureSet,
		Columns:    append([]string{EntityColumn}, featureNames...),
		Rows:       make([]FeatureRow, 0, len(matched)),
	}
	for _, record := range matched {
		row := FeatureRow{EntityID: record.EntityID, Values: make([]float64, len(featureNames))}
		for i, name := range featureNames {
			value, ok := record.Features[name]
			if !ok {
				value = math.NaN()
			}
			row.Values[i] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func matchesFeatureFilter(features, filter map[string]float64) bool {
	for name, want := range filter {
		got, ok := features[name]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// WriteCSV writes the table with a header row. Missing values are written as NaN.
func (t *FeatureTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, row.EntityID)
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
