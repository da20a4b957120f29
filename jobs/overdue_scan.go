package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/billfold/billfold/internal/billing"
	jobmetrics "github.com/billfold/billfold/internal/jobs"
)

const (
	// TaskOverdueScan flips past-due open invoices to overdue.
	TaskOverdueScan = "billing:overdue_scan"
)

// NewOverdueScanTask constructs the periodic overdue-scan task.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueScan, nil, asynq.Queue(QueueDefault))
}

// OverdueScanJob marks invoices overdue once their due date passes.
type OverdueScanJob struct {
	Billing *billing.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueScanJob wires dependencies for the overdue-scan handler.
func NewOverdueScanJob(billingSvc *billing.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Billing: billingSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskOverdueScan tasks.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Billing == nil {
		return errors.New("overdue scan: handler not configured")
	}

	tracker := j.metrics().Track(TaskOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	marked, err := j.Billing.MarkOverdue(ctx, j.clock())
	if err != nil {
		resultErr = err
		j.logger().Error("overdue scan failed", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("overdue scan finished", slog.Int64("marked", marked))
	return resultErr
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueScan))
	}
	return slog.Default().With(slog.String("job", TaskOverdueScan))
}
