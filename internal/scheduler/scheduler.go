// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a unit of scheduled work. An empty Schedule registers the job for
// on-demand runs only.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
}

func New() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		timeout: time.Minute,
	}
}

// Register adds the job and schedules it when it has a cron schedule.
func (s *Scheduler) Register(job Job) error {
	schedule := job.Schedule()
	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, func() { s.execute(job) }); err != nil {
			return fmt.Errorf("failed to schedule %s with %q: %w", job.Name(), schedule, err)
		}
		logger.Log.WithFields(logrus.Fields{"job": job.Name(), "schedule": schedule}).Info("job scheduled")
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) execute(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.run(ctx, job); err != nil {
		logger.Log.WithError(err).WithField("job", job.Name()).Error("scheduled job failed")
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	err := job.Run(ctx)
	metrics.RecordJobRun(job.Name(), err == nil)
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Log.Info("scheduler stopped")
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q is not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
