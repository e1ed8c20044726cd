// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogPredictionRecorded logs a newly inserted prediction.
func (al *AuditLogger) LogPredictionRecorded(predictionID, ticker, modelID string, probability, edge float64) {
	al.WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"ticker":        ticker,
		"model_id":      modelID,
		"probability":   probability,
		"edge":          edge,
	}).Info("Prediction recorded")
}

// LogSettlement logs an outcome attached to a prediction.
func (al *AuditLogger) LogSettlement(predictionID string, actualResult, correct bool, pnl string, settledAt time.Time) {
	al.WithFields(logrus.Fields{
		"prediction_id": predictionID,
		"actual_result": actualResult,
		"is_correct":    correct,
		"pnl":           pnl,
		"settled_at":    settledAt.Unix(),
	}).Info("Prediction settled")
}

// LogSettlementConflict logs an attempt to settle a prediction with a different result.
func (al *AuditLogger) LogSettlementConflict(predictionID string, existing, attempted bool) {
	al.WithFields(logrus.Fields{
		"prediction_id":    predictionID,
		"existing_result":  existing,
		"attempted_result": attempted,
	}).Warn("Conflicting settlement rejected")
}

// LogFeatureWrite logs a feature snapshot upsert.
func (al *AuditLogger) LogFeatureWrite(entityID, version, featureSet string, featureCount int) {
	al.WithFields(logrus.Fields{
		"entity_id":       entityID,
		"feature_version": version,
		"feature_set":     featureSet,
		"feature_count":   featureCount,
	}).Info("Features stored")
}

// LogIngestionBatch logs the result of applying a feed batch.
func (al *AuditLogger) LogIngestionBatch(source string, predictions, settlements, rejected int) {
	al.WithFields(logrus.Fields{
		"source":      source,
		"predictions": predictions,
		"settlements": settlements,
		"rejected":    rejected,
	}).Info("Feed batch ingested")
}
