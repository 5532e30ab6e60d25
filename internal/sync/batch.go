package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

// QueueName is the dedicated queue partition for sync traffic, kept
// separate so long-running synchronization never starves interactive
// work.
const QueueName = "sync"

const (
	retryPrefix      = "retry_"
	firstLoginPrefix = "FirstLoginSync_"
)

// Hooks are the completion callbacks of a batch. Exactly one of Then or
// Catch runs once every task of the batch has resolved; Finally always
// runs after either.
type Hooks struct {
	Then    func(ctx context.Context, batch *models.SyncBatch)
	Catch   func(ctx context.Context, batch *models.SyncBatch)
	Finally func(ctx context.Context, batch *models.SyncBatch)
}

// Coordinator groups tasks into named, durable, trackable batches.
// Batch rows outlive the process, so completion hooks are registered by
// batch name at startup; per-batch hooks (retry cleanup) are held
// in-memory and are best effort across restarts.
type Coordinator struct {
	batches BatchStore
	tasks   TaskStore

	mu       sync.RWMutex
	named    map[string]Hooks
	perBatch map[string]Hooks
}

func NewCoordinator(batches BatchStore, tasks TaskStore) *Coordinator {
	return &Coordinator{
		batches:  batches,
		tasks:    tasks,
		named:    make(map[string]Hooks),
		perBatch: make(map[string]Hooks),
	}
}

// RegisterHooks installs the completion hooks for every batch whose base
// name matches. Retry batches resolve to their base name.
func (c *Coordinator) RegisterHooks(name string, h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.named[name] = h
}

// RegisterBatchHooks installs hooks for one specific batch id, dropped
// after they fire.
func (c *Coordinator) RegisterBatchHooks(batchID string, h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perBatch[batchID] = h
}

// Dispatch creates a named batch around the given tasks and enqueues
// them on the sync queue. Options must already carry the sealed token;
// the coordinator never sees plaintext credentials.
func (c *Coordinator) Dispatch(ctx context.Context, taskList []models.SyncTask, name string, opts models.BatchOptions) (*models.SyncBatch, error) {
	if len(taskList) == 0 {
		return nil, fmt.Errorf("cannot dispatch an empty batch")
	}

	now := time.Now()
	batch := &models.SyncBatch{
		ID:            uuid.New().String(),
		Name:          name,
		LegalEntityID: opts.LegalEntityID,
		Options:       opts,
		TotalTasks:    len(taskList),
		PendingTasks:  len(taskList),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	for i := range taskList {
		task := &taskList[i]
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		task.BatchID = batch.ID
		task.Queue = QueueName
		task.Status = models.TaskStatusQueued
		if task.MaxAttempts == 0 {
			task.MaxAttempts = 3
		}
		if task.ScheduledAt.IsZero() {
			task.ScheduledAt = now
		}
		task.CreatedAt = now
		task.UpdatedAt = now
		if err := c.tasks.Create(ctx, task); err != nil {
			return nil, err
		}
	}

	log.Ctx(ctx).Info().
		Str("batch_id", batch.ID).
		Str("batch", name).
		Str("legal_entity_id", opts.LegalEntityID).
		Int("tasks", len(taskList)).
		Msg("sync batch dispatched")

	return batch, nil
}

// Continue appends a pagination continuation task to a running batch.
// This is a plain continuation, not failure recovery; it never goes
// through the retry-batch path.
func (c *Coordinator) Continue(ctx context.Context, batchID string, task *models.SyncTask) error {
	if err := c.batches.AddPending(ctx, batchID, 1); err != nil {
		return err
	}
	now := time.Now()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.BatchID = batchID
	task.Queue = QueueName
	task.Status = models.TaskStatusQueued
	task.CreatedAt = now
	task.UpdatedAt = now
	return c.tasks.Create(ctx, task)
}

// Get loads a batch row.
func (c *Coordinator) Get(ctx context.Context, batchID string) (*models.SyncBatch, error) {
	return c.batches.GetByID(ctx, batchID)
}

// TaskSucceeded records one resolved task and fires completion hooks if
// the batch is done.
func (c *Coordinator) TaskSucceeded(ctx context.Context, task *models.SyncTask) error {
	if err := c.batches.ResolvePending(ctx, task.BatchID, ""); err != nil {
		return err
	}
	return c.maybeFinish(ctx, task.BatchID)
}

// TaskFailed records one terminally failed task and fires completion
// hooks if the batch is done.
func (c *Coordinator) TaskFailed(ctx context.Context, task *models.SyncTask) error {
	if err := c.batches.ResolvePending(ctx, task.BatchID, task.ID); err != nil {
		return err
	}
	return c.maybeFinish(ctx, task.BatchID)
}

// DeleteBatch removes a superseded batch record and its in-memory hooks.
func (c *Coordinator) DeleteBatch(ctx context.Context, batchID string) error {
	c.mu.Lock()
	delete(c.perBatch, batchID)
	c.mu.Unlock()
	return c.batches.Delete(ctx, batchID)
}

func (c *Coordinator) maybeFinish(ctx context.Context, batchID string) error {
	batch, err := c.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.Resolved() {
		return nil
	}

	// TryFinish is a conditional stamp; only one resolver wins, so the
	// hooks fire exactly once per batch.
	won, err := c.batches.TryFinish(ctx, batchID)
	if err != nil || !won {
		return err
	}

	named, batchHooks := c.takeHooks(batch)

	if batch.Failed() {
		runHook(ctx, batch, named.Catch, batchHooks.Catch)
	} else {
		runHook(ctx, batch, named.Then, batchHooks.Then)
	}
	runHook(ctx, batch, named.Finally, batchHooks.Finally)
	return nil
}

func (c *Coordinator) takeHooks(batch *models.SyncBatch) (Hooks, Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	named := c.named[BaseBatchName(batch.Name)]
	perBatch := c.perBatch[batch.ID]
	delete(c.perBatch, batch.ID)
	return named, perBatch
}

func runHook(ctx context.Context, batch *models.SyncBatch, fns ...func(context.Context, *models.SyncBatch)) {
	for _, fn := range fns {
		if fn != nil {
			fn(ctx, batch)
		}
	}
}

// BaseBatchName strips retry and first-login prefixes so successor
// batches share the taxonomy key of the run they continue.
func BaseBatchName(name string) string {
	for {
		switch {
		case strings.HasPrefix(name, firstLoginPrefix):
			name = strings.TrimPrefix(name, firstLoginPrefix)
		case strings.HasPrefix(name, retryPrefix):
			name = strings.TrimPrefix(name, retryPrefix)
		default:
			return name
		}
	}
}

// RetryBatchName builds the name of the batch that retries a failed one.
// First-login runs carry the chain prefix so they stay recognizable as
// onboarding traffic.
func RetryBatchName(originalName string, firstLogin bool) string {
	name := retryPrefix + BaseBatchName(originalName)
	if firstLogin {
		name = firstLoginPrefix + name
	}
	return name
}
