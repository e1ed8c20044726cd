package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/backtest"
	"github.com/yourusername/edgecheck/internal/models"
)

const defaultBacktestListLimit = 20

type handlers struct {
	deps   Dependencies
	logger *logrus.Entry
}

// OutcomeRequest settles a prediction. SettledAt defaults to now.
type OutcomeRequest struct {
	ActualResult *bool      `json:"actual_result"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
}

// BacktestRequest replays the settled predictions matching Filter
type BacktestRequest struct {
	Name    string                   `json:"name"`
	Config  models.StrategyConfig    `json:"config"`
	Filter  models.PerformanceFilter `json:"filter"`
	Analyze bool                     `json:"analyze"`
}

// BacktestResponse holds a finished run and, when requested, its analysis
type BacktestResponse struct {
	Run      *models.BacktestRun        `json:"run"`
	Analysis *backtest.AggregatedResult `json:"analysis,omitempty"`
}

// FeaturesRequest replaces the features of one entity
type FeaturesRequest struct {
	Features map[string]float64 `json:"features"`
}

// POST /api/v1/predictions
func (h *handlers) createPrediction(w http.ResponseWriter, r *http.Request) {
	var prediction models.Prediction
	if err := decodeJSON(r, &prediction); err != nil {
		respondErr(w, err)
		return
	}
	if err := h.deps.Tracker.RecordPrediction(r.Context(), &prediction); err != nil {
		h.logFailure(err, "Failed to record prediction")
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, prediction)
}

// POST /api/v1/predictions/{id}/outcome
func (h *handlers) recordOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, err)
		return
	}
	var req OutcomeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	if req.ActualResult == nil {
		respondErr(w, models.NewValidationError("actual_result_required", "actual_result is required"))
		return
	}

	var settledAt time.Time
	if req.SettledAt != nil {
		settledAt = *req.SettledAt
	}
	record, err := h.deps.Tracker.RecordOutcome(r.Context(), id, *req.ActualResult, settledAt)
	if err != nil {
		h.logFailure(err, "Failed to record outcome")
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// GET /api/v1/performance/summary
func (h *handlers) performanceSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePerformanceFilter(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	summary, err := h.deps.Tracker.GetPerformanceSummary(r.Context(), filter)
	if err != nil {
		h.logFailure(err, "Failed to compute performance summary")
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// POST /api/v1/backtests
func (h *handlers) runBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	if err := backtest.ValidateStrategyConfig(req.Config); err != nil {
		respondErr(w, err)
		return
	}

	records, err := h.deps.Settlements.ListSettled(r.Context(), req.Filter)
	if err != nil {
		h.logFailure(err, "Failed to load settled predictions")
		respondErr(w, err)
		return
	}

	run, err := h.deps.Engine.Run(r.Context(), req.Name, req.Config, records)
	if err != nil {
		h.logFailure(err, "Backtest failed")
		respondErr(w, err)
		return
	}

	resp := BacktestResponse{Run: run}
	if req.Analyze {
		agg, err := h.deps.Engine.Analyze(r.Context(), run, records)
		if err != nil {
			h.logFailure(err, "Backtest analysis failed")
			respondErr(w, err)
			return
		}
		resp.Analysis = agg
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/backtests
func (h *handlers) listBacktests(w http.ResponseWriter, r *http.Request) {
	limit := defaultBacktestListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondErr(w, models.NewValidationError("invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	runs, err := h.deps.Runs.GetLatest(r.Context(), limit)
	if err != nil {
		h.logFailure(err, "Failed to list backtests")
		respondErr(w, err)
		return
	}
	if runs == nil {
		runs = []*models.BacktestRun{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// GET /api/v1/backtests/{id}
func (h *handlers) getBacktest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, err)
		return
	}
	run, err := h.deps.Runs.GetByID(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// PUT /api/v1/features/{set}/{version}/{entity}
func (h *handlers) storeFeatures(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req FeaturesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	if err := h.deps.Features.StoreFeatures(r.Context(), vars["entity"], req.Features, vars["version"], vars["set"]); err != nil {
		h.logFailure(err, "Failed to store features")
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/features/{set}/{version}/{entity}
func (h *handlers) getFeatures(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	features, err := h.deps.Features.GetFeatures(r.Context(), vars["entity"], vars["version"], vars["set"])
	if err != nil {
		h.logFailure(err, "Failed to load features")
		respondErr(w, err)
		return
	}
	if features == nil {
		respondError(w, http.StatusNotFound, "features not found")
		return
	}
	respondJSON(w, http.StatusOK, models.FeatureRecord{
		EntityID:       vars["entity"],
		FeatureVersion: vars["version"],
		FeatureSet:     vars["set"],
		Features:       features,
	})
}

// GET /api/v1/features/{set}/{version}?format=csv&<feature>=<value>
func (h *handlers) featureTable(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	filter := map[string]float64{}
	for name, values := range query {
		if name == "format" || len(values) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			respondErr(w, models.NewValidationError("invalid_filter", "feature filter "+name+" must be numeric"))
			return
		}
		filter[name] = v
	}

	table, err := h.deps.Features.GetFeaturesAsTable(r.Context(), vars["version"], vars["set"], filter)
	if err != nil {
		h.logFailure(err, "Failed to export feature table")
		respondErr(w, err)
		return
	}

	if strings.EqualFold(query.Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := table.WriteCSV(w); err != nil {
			h.logger.WithError(err).Warn("Failed to write feature table")
		}
		return
	}
	respondJSON(w, http.StatusOK, table)
}

func (h *handlers) logFailure(err error, msg string) {
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.WithError(err).Error(msg)
		return
	}
	h.logger.WithError(err).Debug(msg)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, models.NewValidationError("invalid_id", name+" must be a uuid")
	}
	return id, nil
}

func parsePerformanceFilter(r *http.Request) (models.PerformanceFilter, error) {
	query := r.URL.Query()
	filter := models.PerformanceFilter{
		Category: query.Get("category"),
		ModelID:  query.Get("model"),
	}

	for name, target := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, models.NewValidationError("invalid_"+name, name+" must be an RFC3339 timestamp")
		}
		t = t.UTC()
		*target = &t
	}

	if raw := query.Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			return filter, models.NewValidationError("invalid_min_confidence", "min_confidence must be within [0,100]")
		}
		filter.MinConfidence = v
	}
	return filter, nil
}
