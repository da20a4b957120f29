package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billfold/billfold/internal/app"
	"github.com/billfold/billfold/internal/billing"
	"github.com/billfold/billfold/internal/clients"
	jobmetrics "github.com/billfold/billfold/internal/jobs"
	"github.com/billfold/billfold/internal/recurring"
	"github.com/billfold/billfold/internal/reminders"
	"github.com/billfold/billfold/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	reminderRepo := reminders.NewRepository(pool)
	reminderSettings := reminders.NewService(reminderRepo)
	notifier := jobs.EmailNotifier{Client: queueClient}
	reminderScheduler := reminders.NewScheduler(reminderRepo, notifier, logger)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, reminderSettings)

	clientService := clients.NewService(clients.NewRepository(pool))
	recurringRepo := recurring.NewRepository(pool)
	recurringScheduler := recurring.NewScheduler(
		recurringRepo, billingService, jobs.ClientTerms{Service: clientService}, logger)

	mailer := jobs.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, logger)

	metrics := jobmetrics.NewMetrics(nil)
	recurringJob := jobs.NewRecurringRunJob(recurringScheduler, logger, metrics)
	remindersJob := jobs.NewRemindersRunJob(reminderScheduler, logger, metrics)
	overdueJob := jobs.NewOverdueScanJob(billingService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailer.HandleSendEmailTask},
			{Type: jobs.TaskRecurringRun, Handler: recurringJob.Handle},
			{Type: jobs.TaskRemindersRun, Handler: remindersJob.Handle},
			{Type: jobs.TaskOverdueScan, Handler: overdueJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueCronSpec, Task: jobs.NewOverdueScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.RecurringCronSpec, Task: jobs.NewRecurringRunTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.RemindersCronSpec, Task: jobs.NewRemindersRunTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
