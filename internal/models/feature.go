package models

import "time"

// FeatureRecord is a versioned feature snapshot for one entity.
// (EntityID, FeatureVersion, FeatureSet) is the composite key.
type FeatureRecord struct {
	EntityID       string             `db:"entity_id" json:"entity_id" validate:"required,max=255"`
	FeatureVersion string             `db:"feature_version" json:"feature_version" validate:"required,max=64"`
	FeatureSet     string             `db:"feature_set" json:"feature_set" validate:"required,max=64"`
	Features       map[string]float64 `db:"features" json:"features" validate:"required,min=1"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}

// FeatureKey identifies a feature record
type FeatureKey struct {
	EntityID       string
	FeatureVersion string
	FeatureSet     string
}

// Key returns the composite key of the record
func (f *FeatureRecord) Key() FeatureKey {
	return FeatureKey{EntityID: f.EntityID, FeatureVersion: f.FeatureVersion, FeatureSet: f.FeatureSet}
}

// String returns the cache representation of the key
func (k FeatureKey) String() string {
	return k.FeatureSet + "|" + k.FeatureVersion + "|" + k.EntityID
}

// CopyFeatures returns a copy of the feature map
func CopyFeatures(features map[string]float64) map[string]float64 {
	if features == nil {
		return nil
	}
	out := make(map[string]float64, len(features))
	for k, v := range features {
		out[k] = v
	}
	return out
}
