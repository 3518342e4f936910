package workflows

import (
	"time"

	"github.com/stanstork/taller-api/internal/alertas"
	"github.com/stanstork/taller-api/internal/temporal"
	"github.com/stanstork/taller-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AlertScanWorkflow runs a single alert scan. The schedule starts one per
// interval and skips a tick while the previous run is still open.
func AlertScanWorkflow(ctx workflow.Context) (alertas.ScanSummary, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting alert scan workflow")

	var a *activities.Activities
	var summary alertas.ScanSummary
	if err := workflow.ExecuteActivity(ctx, a.RunAlertScanActivity).Get(ctx, &summary); err != nil {
		logger.Error("Alert scan activity failed.", "error", err)
		return alertas.ScanSummary{}, err
	}

	logger.Info("Alert scan workflow completed", "created", summary.Created, "failures", len(summary.Failures))
	return summary, nil
}
