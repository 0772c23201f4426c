// File: internal/jobs/deadline_reminder.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/company"
	"github.com/AryanBhardwaj123/placement-tracker/internal/config"
)

// DeadlineReminderJob periodically scans tracked companies for
// application deadlines inside the configured window and logs a
// reminder for each.
type DeadlineReminderJob struct {
	companyService company.Service
	logger         *zap.Logger
	cfg            *config.Config
	cronScheduler  *cron.Cron
}

// NewDeadlineReminderJob creates a new DeadlineReminderJob.
func NewDeadlineReminderJob(
	companyService company.Service,
	logger *zap.Logger,
	cfg *config.Config,
) *DeadlineReminderJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &DeadlineReminderJob{
		companyService: companyService,
		logger:         logger.Named("DeadlineReminderJob"),
		cfg:            cfg,
		cronScheduler:  scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. An empty schedule
// disables the job without failing startup.
func (j *DeadlineReminderJob) SetupAndStart() error {
	jobSpec := j.cfg.DeadlineReminderJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Deadline reminder job schedule not defined (DEADLINE_REMINDER_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule deadline reminder job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Deadline reminder job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob is the actual work performed by the cron job.
func (j *DeadlineReminderJob) runJob() {
	j.logger.Info("Starting deadline reminder job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	window := time.Duration(j.cfg.DeadlineReminderWindowDays) * 24 * time.Hour
	companies, err := j.companyService.UpcomingDeadlines(ctx, window)
	if err != nil {
		j.logger.Error("Deadline reminder job run failed", zap.Error(err))
		return
	}

	for _, c := range companies {
		j.logger.Info("Upcoming application deadline",
			zap.String("company_id", c.ID.String()),
			zap.String("name", c.Name),
			zap.Timep("deadline", c.Deadline),
			zap.String("status", c.Status),
		)
	}
	j.logger.Info("Deadline reminder job run completed", zap.Int("companies_due", len(companies)))
}

// Stop gracefully stops the cron scheduler.
func (j *DeadlineReminderJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping deadline reminder job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Deadline reminder job scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Deadline reminder job scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	cl.zl.Info(msg, fields...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
