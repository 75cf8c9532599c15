package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// PurgeJob deletes expired sessions and idempotency keys older than the
// retention window.
type PurgeJob struct {
	db        db.DBTX
	retention time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

// NewPurgeJob constructs a PurgeJob.
func NewPurgeJob(q db.DBTX, retention time.Duration, logger *slog.Logger, metrics *Metrics) *PurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &PurgeJob{db: q, retention: retention, logger: logger, metrics: metrics}
}

// Handle runs TaskPurgeExpired.
func (j *PurgeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track(TaskPurgeExpired)
	sessions, err := j.db.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < NOW()`)
	if err != nil {
		j.logger.Error("purge sessions", slog.Any("error", err))
		return tracker.End(err)
	}
	keys, err := j.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().Add(-j.retention))
	if err != nil {
		j.logger.Error("purge idempotency keys", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("purged expired rows", slog.String("job", TaskPurgeExpired),
		slog.Int64("sessions", sessions.RowsAffected()), slog.Int64("idempotency_keys", keys.RowsAffected()))
	return tracker.End(nil)
}
