package activities

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stanstork/taller-api/internal/alertas"
	"github.com/stanstork/taller-api/internal/apperr"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

type Activities struct {
	Scanner alertas.Scanner
}

// RunAlertScanActivity runs one alert scan. Repository outages are left
// retryable; any other scan-level error is not.
func (a *Activities) RunAlertScanActivity(ctx context.Context) (alertas.ScanSummary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running alert scan")

	summary, err := a.Scanner.Run(ctx)
	if err != nil {
		logger.Error("Alert scan failed", "error", err)
		if errors.Is(err, apperr.ErrRepositoryUnavailable) {
			return summary, err
		}
		return summary, temporal.NewNonRetryableApplicationError(err.Error(), "AlertScanError", err)
	}

	logger.Info("Alert scan finished",
		"scanned", summary.Scanned,
		"created", summary.Created,
		"skipped", summary.Skipped,
		"failures", len(summary.Failures))
	return summary, nil
}
