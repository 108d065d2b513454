// Package scheduler runs the periodic maintenance jobs on cron schedules
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/telemetry"
	"go.uber.org/zap"
)

// Job is one unit of scheduled work
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron       *cron.Cron
	mu         sync.Mutex
	jobs       map[string]cron.EntryID
	jobTimeout time.Duration
}

// New creates a scheduler running in UTC. Overlapping runs of the same job are skipped.
func New(jobTimeout time.Duration) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	log := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		jobs:       make(map[string]cron.EntryID),
		jobTimeout: jobTimeout,
	}
}

// AddJob registers job under a standard 5-field cron schedule
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(name, job); err != nil {
			logger.Log.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entryID
	s.mu.Unlock()

	logger.Log.Info("Scheduled job added", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// RunNow executes a job immediately with the same timeout, metrics and tracing as a scheduled run
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	ctx, span := telemetry.TraceJob(ctx, name)
	defer func() { telemetry.EndSpan(span, err) }()

	m := metrics.Get()
	start := time.Now()
	logger.Log.Debug("Starting job", zap.String("job", name))

	err = job(ctx)
	elapsed := time.Since(start)

	m.JobRunDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	m.JobRunsTotal.WithLabelValues(name, status).Inc()

	if err == nil {
		logger.Log.Info("Job completed", zap.String("job", name), logger.WithDuration(elapsed))
	}
	return err
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	logger.Log.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	logger.Log.Info("Stopping scheduler")
	return s.cron.Stop()
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// ListJobs returns the registered jobs ordered by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// cronLogger routes cron's own logging into zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.SugaredLog.Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.SugaredLog.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
