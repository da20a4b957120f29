package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/billfold/billfold/internal/clients"
	jobmetrics "github.com/billfold/billfold/internal/jobs"
	"github.com/billfold/billfold/internal/recurring"
)

const (
	// TaskRecurringRun materializes due recurring invoice templates.
	TaskRecurringRun = "billing:recurring_run"
)

// NewRecurringRunTask constructs the periodic recurring-run task.
func NewRecurringRunTask() *asynq.Task {
	return asynq.NewTask(TaskRecurringRun, nil, asynq.Queue(QueueDefault))
}

// RecurringRunJob drives the recurring invoice scheduler from the queue.
type RecurringRunJob struct {
	Scheduler *recurring.Scheduler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewRecurringRunJob wires dependencies for the recurring-run handler.
func NewRecurringRunJob(scheduler *recurring.Scheduler, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecurringRunJob {
	return &RecurringRunJob{Scheduler: scheduler, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRecurringRun tasks.
func (j *RecurringRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scheduler == nil {
		return errors.New("recurring run: handler not configured")
	}

	tracker := j.metrics().Track(TaskRecurringRun)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	summary, err := j.Scheduler.Run(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("recurring run aborted", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("recurring run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("processed", summary.Processed),
		slog.Int("successful", summary.Successful),
		slog.Int("deactivated", summary.Deactivated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	return resultErr
}

func (j *RecurringRunJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *RecurringRunJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRecurringRun))
	}
	return slog.Default().With(slog.String("job", TaskRecurringRun))
}

// ClientTerms adapts the client directory to the scheduler's payment
// term lookup, translating a missing client into the skip signal.
type ClientTerms struct {
	Service *clients.Service
}

// PaymentTermDays implements recurring.ClientTermsPort.
func (a ClientTerms) PaymentTermDays(ctx context.Context, clientID int64) (int, error) {
	days, err := a.Service.PaymentTermDays(ctx, clientID)
	if errors.Is(err, clients.ErrNotFound) {
		return 0, recurring.ErrMissingClient
	}
	return days, err
}
