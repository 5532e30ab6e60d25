package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
)

// ErrTokenUnavailable is the fatal precondition failure: the batch holds
// no sealed token or it cannot be opened. A different actor cannot fix a
// broken batch configuration, so this never goes through recovery.
var ErrTokenUnavailable = errors.New("batch token missing or undecryptable")

// Runner executes one sync task: fetch a page, persist it, then decide
// between pagination continuation, chaining to the next entity type, or
// completion.
type Runner struct {
	client      APIClient
	registry    RegistryStore
	tracker     *StatusTracker
	coordinator *Coordinator
	limiter     *Limiter
	sealer      TokenSealer
}

func NewRunner(client APIClient, registry RegistryStore, tracker *StatusTracker, coordinator *Coordinator, limiter *Limiter, sealer TokenSealer) *Runner {
	return &Runner{
		client:      client,
		registry:    registry,
		tracker:     tracker,
		coordinator: coordinator,
		limiter:     limiter,
		sealer:      sealer,
	}
}

// Handle runs the task state machine. Errors returned from here are
// classified at the worker boundary: transient ones retry the same task,
// everything else reaches the recovery policy.
func (r *Runner) Handle(ctx context.Context, task *models.SyncTask) error {
	batch, err := r.coordinator.Get(ctx, task.BatchID)
	if err != nil {
		return fmt.Errorf("failed to load batch %s: %w", task.BatchID, err)
	}

	if batch.Options.SealedToken == "" {
		return ErrTokenUnavailable
	}
	token, err := r.sealer.Open(batch.Options.SealedToken)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTokenUnavailable, err)
	}

	if task.EntityType == models.EntityCompleteSync {
		return r.completeFirstLogin(ctx, task)
	}

	desc, ok := DescriptorFor(task.EntityType)
	if !ok {
		return fmt.Errorf("unknown entity type %q", task.EntityType)
	}

	if err := r.tracker.MarkProcessing(ctx, task.LegalEntityID, task.EntityType); err != nil {
		return err
	}

	resp, err := r.client.Search(ctx, token, desc.Resource, task.LegalEntityID, task.Page)
	if err != nil {
		return err
	}
	if resp == nil {
		// Treated as an empty last page.
		resp = &ehealth.PagedResponse{}
	}

	if err := desc.Persist(ctx, r.registry, task.LegalEntityID, resp.Data); err != nil {
		return err
	}

	log.Ctx(ctx).Debug().
		Str("entity_type", string(task.EntityType)).
		Str("legal_entity_id", task.LegalEntityID).
		Int("page", task.Page).
		Int("records", len(resp.Data)).
		Msg("sync page persisted")

	if resp.IsNotLast() {
		return r.scheduleNextPage(ctx, task)
	}

	if len(task.ChainTail) > 0 {
		return r.chainNext(ctx, task, batch, token)
	}

	// Leaf task of a standalone or single-entity run.
	return r.tracker.MarkCompleted(ctx, task.LegalEntityID, task.EntityType)
}

// scheduleNextPage enqueues the page+1 continuation in the same batch,
// delayed by the rate limiter. The current task terminates without
// finalizing any status.
func (r *Runner) scheduleNextPage(ctx context.Context, task *models.SyncTask) error {
	next := &models.SyncTask{
		EntityType:    task.EntityType,
		LegalEntityID: task.LegalEntityID,
		Page:          task.Page + 1,
		IsFirstLogin:  task.IsFirstLogin,
		Standalone:    task.Standalone,
		ChainTail:     task.ChainTail,
		MaxAttempts:   task.MaxAttempts,
		ScheduledAt:   time.Now().Add(r.limiter.Delay()),
	}
	return r.coordinator.Continue(ctx, task.BatchID, next)
}

// chainNext dispatches the next entity type of the chain as a new batch
// carrying a freshly sealed copy of the token and the same acting user.
func (r *Runner) chainNext(ctx context.Context, task *models.SyncTask, batch *models.SyncBatch, token string) error {
	nextType := task.ChainTail[0]
	nextDesc, ok := DescriptorFor(nextType)
	if !ok {
		return fmt.Errorf("unknown entity type %q in chain", nextType)
	}
	curDesc, _ := DescriptorFor(task.EntityType)

	// Last task of its type in the chain: the current entity type is done
	// before its successor starts.
	if nextDesc.BatchName != curDesc.BatchName || nextType == models.EntityCompleteSync {
		if err := r.tracker.MarkCompleted(ctx, task.LegalEntityID, task.EntityType); err != nil {
			return err
		}
	}

	sealed, err := r.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("failed to seal token for chain dispatch: %w", err)
	}

	nextTask := models.SyncTask{
		EntityType:    nextType,
		LegalEntityID: task.LegalEntityID,
		Page:          1,
		IsFirstLogin:  task.IsFirstLogin,
		ChainTail:     task.ChainTail[1:],
		MaxAttempts:   task.MaxAttempts,
	}
	_, err = r.coordinator.Dispatch(ctx, []models.SyncTask{nextTask}, nextDesc.BatchName, models.BatchOptions{
		LegalEntityID: task.LegalEntityID,
		SealedToken:   sealed,
		ActorID:       batch.Options.ActorID,
	})
	return err
}

// completeFirstLogin handles the terminal chain marker: the whole
// onboarding run is done.
func (r *Runner) completeFirstLogin(ctx context.Context, task *models.SyncTask) error {
	log.Ctx(ctx).Info().
		Str("legal_entity_id", task.LegalEntityID).
		Msg("first-login sync completed")
	return r.tracker.MarkOverall(ctx, task.LegalEntityID, models.SyncStateCompleted)
}
