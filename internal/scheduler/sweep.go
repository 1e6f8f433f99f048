package scheduler

import (
	"context"
	"time"

	"anoa.com/fandomspace/pkg/metrics"
)

// SuspensionSweeper is the part of moderation the sweep job needs.
type SuspensionSweeper interface {
	SweepExpiredSuspensions(ctx context.Context, now time.Time) (int64, error)
}

// SweepJob lifts timed suspensions once they have expired.
type SweepJob struct {
	sweeper  SuspensionSweeper
	schedule string
	clock    func() time.Time
}

func NewSweepJob(sweeper SuspensionSweeper, schedule string, clock func() time.Time) *SweepJob {
	if clock == nil {
		clock = time.Now
	}
	return &SweepJob{sweeper: sweeper, schedule: schedule, clock: clock}
}

func (j *SweepJob) Name() string     { return "suspension_sweep" }
func (j *SweepJob) Schedule() string { return j.schedule }

func (j *SweepJob) Run(ctx context.Context) error {
	lifted, err := j.sweeper.SweepExpiredSuspensions(ctx, j.clock())
	if err != nil {
		return err
	}
	metrics.RecordSuspensionsLifted(lifted)
	return nil
}
