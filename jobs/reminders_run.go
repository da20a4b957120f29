package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/billfold/billfold/internal/jobs"
	"github.com/billfold/billfold/internal/reminders"
)

const (
	// TaskRemindersRun dispatches due invoice reminders.
	TaskRemindersRun = "billing:reminders_run"
)

// NewRemindersRunTask constructs the periodic reminders-run task.
func NewRemindersRunTask() *asynq.Task {
	return asynq.NewTask(TaskRemindersRun, nil, asynq.Queue(QueueDefault))
}

// RemindersRunJob drives the reminder scheduler from the queue.
type RemindersRunJob struct {
	Scheduler *reminders.Scheduler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewRemindersRunJob wires dependencies for the reminders-run handler.
func NewRemindersRunJob(scheduler *reminders.Scheduler, logger *slog.Logger, metrics *jobmetrics.Metrics) *RemindersRunJob {
	return &RemindersRunJob{Scheduler: scheduler, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRemindersRun tasks.
func (j *RemindersRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scheduler == nil {
		return errors.New("reminders run: handler not configured")
	}

	tracker := j.metrics().Track(TaskRemindersRun)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	summary, err := j.Scheduler.Run(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("reminders run aborted", slog.Any("error", err))
		return resultErr
	}

	m := j.metrics()
	m.AddReminders("success", summary.Successful)
	m.AddReminders("skipped", summary.Skipped)
	m.AddReminders("error", summary.Failed)

	j.logger().Info("reminders run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("processed", summary.Processed),
		slog.Int("successful", summary.Successful),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	return resultErr
}

func (j *RemindersRunJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *RemindersRunJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRemindersRun))
	}
	return slog.Default().With(slog.String("job", TaskRemindersRun))
}

// EmailNotifier queues rendered reminders as send-email tasks.
type EmailNotifier struct {
	Client *Client
}

// Notify implements reminders.NotifierPort.
func (n EmailNotifier) Notify(ctx context.Context, msg reminders.Message) error {
	if n.Client == nil {
		return errors.New("jobs: email notifier not configured")
	}
	_, err := n.Client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      msg.Recipient,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	return err
}
