package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/backtest"
	"github.com/yourusername/edgecheck/internal/health"
	"github.com/yourusername/edgecheck/internal/metrics"
	"github.com/yourusername/edgecheck/internal/repository"
	"github.com/yourusername/edgecheck/internal/service"
)

// Dependencies are the services exposed over HTTP
type Dependencies struct {
	Tracker     *service.PerformanceTracker
	Features    *service.FeatureStore
	Engine      *backtest.Engine
	Runs        repository.BacktestRunRepository
	Settlements repository.SettlementRepository
	Health      *health.Checker
	// MetricsPath mounts the Prometheus handler when set
	MetricsPath string
	Logger      *logrus.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logrus.New()
	}
	entry := log.WithField("component", "api")
	h := &handlers{deps: deps, logger: entry}

	r := mux.NewRouter()
	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.MetricsPath != "" {
		r.Handle(deps.MetricsPath, metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/predictions", h.createPrediction).Methods(http.MethodPost)
	v1.HandleFunc("/predictions/{id}/outcome", h.recordOutcome).Methods(http.MethodPost)
	v1.HandleFunc("/performance/summary", h.performanceSummary).Methods(http.MethodGet)

	v1.HandleFunc("/backtests", h.runBacktest).Methods(http.MethodPost)
	v1.HandleFunc("/backtests", h.listBacktests).Methods(http.MethodGet)
	v1.HandleFunc("/backtests/{id}", h.getBacktest).Methods(http.MethodGet)

	v1.HandleFunc("/features/{set}/{version}/{entity}", h.storeFeatures).Methods(http.MethodPut)
	v1.HandleFunc("/features/{set}/{version}/{entity}", h.getFeatures).Methods(http.MethodGet)
	v1.HandleFunc("/features/{set}/{version}", h.featureTable).Methods(http.MethodGet)

	r.Use(loggingMiddleware(entry))
	r.Use(recoveryMiddleware(entry))

	return r
}
