package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	appctx "stockflow/internal/core/context"
	"stockflow/internal/domain/reconcile"
	"stockflow/pkg/logger"
)

const reconcileLockKey = "lock:ledger:reconcile"

// Reconciler checks the whole ledger.
type Reconciler interface {
	CheckAll(ctx context.Context) ([]reconcile.Report, error)
}

// ReconcileJob handles TaskLedgerReconcile. Only one worker runs it at a time.
type ReconcileJob struct {
	reconciler Reconciler
	locker     *redislock.Client
	lockTTL    time.Duration
}

// NewReconcileJob creates the job.
func NewReconcileJob(reconciler Reconciler, locker *redislock.Client) *ReconcileJob {
	return &ReconcileJob{
		reconciler: reconciler,
		locker:     locker,
		lockTTL:    5 * time.Minute,
	}
}

// Handle implements asynq.HandlerFunc. A run that finds the lock taken is skipped, not retried.
func (j *ReconcileJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ReconcilePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode reconcile payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	lock, err := j.locker.Obtain(ctx, reconcileLockKey, j.lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Info(ctx, "ledger reconciliation already running, skipping", "trigger", payload.Trigger)
		return nil
	}
	if err != nil {
		return fmt.Errorf("obtain reconcile lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release reconcile lock", "error", err)
		}
	}()

	drifted, err := j.reconciler.CheckAll(ctx)
	if err != nil {
		return fmt.Errorf("reconcile ledger: %w", err)
	}
	if len(drifted) > 0 {
		logger.Warn(ctx, "ledger reconciliation found drift", "trigger", payload.Trigger, "products", len(drifted))
	}
	return nil
}
