package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
	syncpipe "github.com/openhealths/ohealth-sub007/internal/sync"
)

const (
	// DefaultMaxAttempts bounds same-task retries for transient errors.
	DefaultMaxAttempts = 3
	// TaskTimeout bounds one execution attempt.
	TaskTimeout = 60 * time.Second
	// staleLockAfter is when a processing lock is considered abandoned
	// by a crashed worker.
	staleLockAfter = 5 * time.Minute

	dueBatchSize = 20
)

// backoffSchedule are the delays between same-task retry attempts.
var backoffSchedule = []time.Duration{3 * time.Second, 10 * time.Second, 30 * time.Second}

// TaskQueue is the durable queue the worker drains.
type TaskQueue interface {
	Due(ctx context.Context, queue string, now time.Time, limit int) ([]models.SyncTask, error)
	Lock(ctx context.Context, taskID, instance string) (bool, error)
	Requeue(ctx context.Context, taskID string, at time.Time, attempts int, lastError string) error
	MarkSucceeded(ctx context.Context, taskID string) error
	MarkFailed(ctx context.Context, taskID string, lastError string) error
	UnlockStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Handler executes one task.
type Handler interface {
	Handle(ctx context.Context, task *models.SyncTask) error
}

// FailurePolicy decides the pipeline-level outcome of a terminal task
// failure.
type FailurePolicy interface {
	HandleFailure(ctx context.Context, task *models.SyncTask, cause error) error
}

// BatchTracker records resolved tasks against their batch.
type BatchTracker interface {
	TaskSucceeded(ctx context.Context, task *models.SyncTask) error
}

// Worker polls the sync queue and executes due tasks with bounded
// concurrency. Each task is a discrete unit of work; parallelism exists
// across batches, never inside one.
type Worker struct {
	instance     string
	queue        string
	pollInterval time.Duration
	tasks        TaskQueue
	handler      Handler
	policy       FailurePolicy
	batches      BatchTracker
	sem          *semaphore.Weighted
}

func New(instance string, pollInterval time.Duration, slots int64, tasks TaskQueue, handler Handler, policy FailurePolicy, batches BatchTracker) *Worker {
	if slots <= 0 {
		slots = 1
	}
	return &Worker{
		instance:     instance,
		queue:        syncpipe.QueueName,
		pollInterval: pollInterval,
		tasks:        tasks,
		handler:      handler,
		policy:       policy,
		batches:      batches,
		sem:          semaphore.NewWeighted(slots),
	}
}

// Start begins the polling loop and blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	log.Ctx(ctx).Info().
		Str("instance", w.instance).
		Str("queue", w.queue).
		Msg("sync worker started")

	// Drain work left over from previous runs before the first tick.
	w.poll(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).Info().Msg("sync worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if unlocked, err := w.tasks.UnlockStale(ctx, staleLockAfter); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to unlock stale tasks")
	} else if unlocked > 0 {
		log.Ctx(ctx).Warn().Int64("count", unlocked).Msg("requeued stale tasks")
	}

	due, err := w.tasks.Due(ctx, w.queue, time.Now(), dueBatchSize)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to query due tasks")
		return
	}

	for _, task := range due {
		locked, err := w.tasks.Lock(ctx, task.ID, w.instance)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("task_id", task.ID).Msg("failed to lock task")
			continue
		}
		if !locked {
			continue // claimed by another instance
		}

		if err := w.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(task models.SyncTask) {
			defer w.sem.Release(1)
			w.execute(ctx, task)
		}(task)
	}
}

func (w *Worker) execute(ctx context.Context, task models.SyncTask) {
	taskCtx, cancel := context.WithTimeout(ctx, TaskTimeout)
	defer cancel()

	err := w.handler.Handle(taskCtx, &task)
	if err == nil {
		if err := w.tasks.MarkSucceeded(ctx, task.ID); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("task_id", task.ID).Msg("failed to finalize task")
			return
		}
		if err := w.batches.TaskSucceeded(ctx, &task); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("task_id", task.ID).Msg("failed to record batch progress")
		}
		return
	}

	attempts := task.Attempts + 1
	maxAttempts := task.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if retrySameTask(err) && attempts < maxAttempts {
		delay := backoff(attempts)
		log.Ctx(ctx).Warn().Err(err).
			Str("task_id", task.ID).
			Int("attempt", attempts).
			Dur("backoff", delay).
			Msg("task failed, retrying")
		if err := w.tasks.Requeue(ctx, task.ID, time.Now().Add(delay), attempts, err.Error()); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("task_id", task.ID).Msg("failed to requeue task")
		}
		return
	}

	if markErr := w.tasks.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
		log.Ctx(ctx).Error().Err(markErr).Str("task_id", task.ID).Msg("failed to mark task failed")
	}
	task.Attempts = attempts
	if policyErr := w.policy.HandleFailure(ctx, &task, err); policyErr != nil {
		log.Ctx(ctx).Error().Err(policyErr).Str("task_id", task.ID).Msg("failure recovery errored")
	}
}

// retrySameTask reports whether the error class is transient, meaning a
// same-task retry with backoff could succeed. Auth/quota rejections go
// to actor substitution, validation rejections and broken batch
// configuration cannot be fixed by retrying.
func retrySameTask(err error) bool {
	if ehealth.IsActorRetryable(err) || ehealth.IsValidation(err) {
		return false
	}
	if errors.Is(err, syncpipe.ErrTokenUnavailable) {
		return false
	}
	return true
}

func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(backoffSchedule) {
		attempt = len(backoffSchedule)
	}
	return backoffSchedule[attempt-1]
}
