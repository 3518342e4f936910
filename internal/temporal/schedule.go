package temporal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
)

// EnsureSchedule registers the recurring alert scan. An existing schedule is
// updated to the configured interval. Overlapping runs are skipped by Temporal.
func EnsureSchedule(ctx context.Context, schedules client.ScheduleClient, cfg ScheduleConfig, logger zerolog.Logger) error {
	if cfg.Interval <= 0 {
		return errors.New("schedule interval must be positive")
	}
	if cfg.TaskQueue == "" {
		cfg.TaskQueue = TaskQueueName
	}
	spec := client.ScheduleSpec{
		Intervals: []client.ScheduleIntervalSpec{{Every: cfg.Interval}},
	}

	_, err := schedules.Create(ctx, client.ScheduleOptions{
		ID:      AlertScanScheduleID,
		Spec:    spec,
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &client.ScheduleWorkflowAction{
			ID:                 AlertScanWorkflowIDPrefix + "run",
			Workflow:           AlertScanWorkflowName,
			TaskQueue:          cfg.TaskQueue,
			WorkflowRunTimeout: 2 * DefaultActivityTimeout,
		},
	})
	if err == nil {
		logger.Info().Dur("interval", cfg.Interval).Msg("alert scan schedule created")
		return nil
	}
	if !errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning) {
		return errors.Wrap(err, "create alert scan schedule")
	}

	handle := schedules.GetHandle(ctx, AlertScanScheduleID)
	err = handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(in client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			sched := in.Description.Schedule
			sched.Spec = &spec
			if sched.Policy == nil {
				sched.Policy = &client.SchedulePolicies{}
			}
			sched.Policy.Overlap = enumspb.SCHEDULE_OVERLAP_POLICY_SKIP
			return &client.ScheduleUpdate{Schedule: &sched}, nil
		},
	})
	if err != nil {
		return errors.Wrap(err, "update alert scan schedule")
	}
	logger.Info().Dur("interval", cfg.Interval).Msg("alert scan schedule updated")
	return nil
}
