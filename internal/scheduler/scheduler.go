package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecheck/internal/datasource"
	"github.com/yourusername/edgecheck/internal/metrics"
	"github.com/yourusername/edgecheck/internal/models"
	"github.com/yourusername/edgecheck/internal/service"
)

// Job names reported in logs and metrics
const (
	JobFeedPoll       = "feed_poll"
	JobSummaryRefresh = "summary_refresh"
)

// FeedPoller pulls new records from the prediction feed
type FeedPoller interface {
	Poll(ctx context.Context) (*service.IngestionMetrics, error)
}

// SummaryRefresher recomputes the performance summary
type SummaryRefresher interface {
	GetPerformanceSummary(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceSummary, error)
}

// Scheduler manages the periodic background jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. Overlapping runs of the same job are
// skipped rather than queued.
func NewScheduler(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	entry := log.WithField("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{entry}), cron.SkipIfStillRunning(cronLogger{entry})),
		),
		logger:          entry,
		jobIDs:          make(map[string]cron.EntryID),
		jobTimeout:      5 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleFeedPoll polls the feed on the given cron expression
func (s *Scheduler) ScheduleFeedPoll(spec string, poller FeedPoller) error {
	return s.schedule(JobFeedPoll, spec, func(ctx context.Context) error {
		stats, err := poller.Poll(ctx)
		if errors.Is(err, datasource.ErrFeedDisabled) {
			return nil
		}
		if err != nil {
			return err
		}
		s.logger.WithField("stats", stats.String()).Debug("Feed poll finished")
		return nil
	})
}

// ScheduleSummaryRefresh recomputes the unfiltered summary, which also
// refreshes the summary gauges.
func (s *Scheduler) ScheduleSummaryRefresh(spec string, refresher SummaryRefresher) error {
	return s.schedule(JobSummaryRefresh, spec, func(ctx context.Context) error {
		_, err := refresher.GetPerformanceSummary(ctx, models.PerformanceFilter{})
		return err
	})
}

func (s *Scheduler) schedule(name, spec string, job func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobIDs[name]; exists {
		return fmt.Errorf("job %s is already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(spec, func() { s.runJob(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs[name] = entryID
	s.logger.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("Scheduled job")
	return nil
}

func (s *Scheduler) runJob(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	log := s.logger.WithFields(logrus.Fields{"job": name, "duration": time.Since(start).String()})
	if err != nil {
		metrics.RecordScheduledJob(name, "failure")
		log.WithError(err).Error("Scheduled job failed")
		return
	}
	metrics.RecordScheduledJob(name, "success")
	log.Debug("Scheduled job completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler jobs still running after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Jobs returns the names of the scheduled jobs
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobIDs))
	for name := range s.jobIDs {
		names = append(names, name)
	}
	return names
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}
	entryID, ok := s.jobIDs[name]
	if !ok {
		return fmt.Errorf("job %s is not scheduled", name)
	}

	s.cron.Remove(entryID)
	delete(s.jobIDs, name)
	s.logger.WithField("job", name).Info("Removed job")
	return nil
}

// cronLogger adapts logrus to the cron.Logger interface
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
