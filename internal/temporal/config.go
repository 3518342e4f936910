package temporal

import "time"

// TaskQueueName is the default task queue for the alert scan worker.
const TaskQueueName = "TALLER_ALERTAS"

// AlertScanWorkflowName is the registered name of the scan workflow. Schedules
// refer to it by name so this package does not import the workflow code.
const AlertScanWorkflowName = "AlertScanWorkflow"

// AlertScanScheduleID identifies the recurring scan schedule.
const AlertScanScheduleID = "taller-alert-scan"

// AlertScanWorkflowIDPrefix prefixes the workflow ids started by the schedule.
const AlertScanWorkflowIDPrefix = "taller-alert-scan-"

// DefaultActivityTimeout bounds one scan run.
const DefaultActivityTimeout = 5 * time.Minute

// ScheduleConfig describes the recurring alert scan.
type ScheduleConfig struct {
	Interval  time.Duration
	TaskQueue string
}
