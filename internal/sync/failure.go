package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
	"github.com/openhealths/ohealth-sub007/internal/repository"
)

// RecoveryPolicy decides what happens after a task fails terminally:
// retry under a substitute actor when the error is an auth or quota
// rejection, otherwise halt the pipeline and tell the user.
type RecoveryPolicy struct {
	users       UserStore
	auth        TokenProvider
	sealer      TokenSealer
	tasks       TaskStore
	coordinator *Coordinator
	tracker     *StatusTracker
	notifier    Notifier
}

func NewRecoveryPolicy(users UserStore, auth TokenProvider, sealer TokenSealer, tasks TaskStore, coordinator *Coordinator, tracker *StatusTracker, notifier Notifier) *RecoveryPolicy {
	return &RecoveryPolicy{
		users:       users,
		auth:        auth,
		sealer:      sealer,
		tasks:       tasks,
		coordinator: coordinator,
		tracker:     tracker,
		notifier:    notifier,
	}
}

// HandleFailure is the job failure boundary. The task row is already
// marked failed by the worker; this decides the pipeline-level outcome.
func (p *RecoveryPolicy) HandleFailure(ctx context.Context, task *models.SyncTask, cause error) error {
	batch, err := p.coordinator.Get(ctx, task.BatchID)
	if err != nil {
		return fmt.Errorf("failed to load batch %s: %w", task.BatchID, err)
	}
	actorID := batch.Options.ActorID

	if !ehealth.IsActorRetryable(cause) {
		log.Ctx(ctx).Error().Err(cause).
			Str("entity_type", string(task.EntityType)).
			Str("legal_entity_id", task.LegalEntityID).
			Msg("sync failed, not recoverable by actor switch")
		return p.halt(ctx, task, actorID, models.SyncStateFailed, models.OutcomeFailed)
	}

	desc, ok := DescriptorFor(task.EntityType)
	if !ok {
		return fmt.Errorf("unknown entity type %q", task.EntityType)
	}

	substitute, err := p.users.FindSubstitute(ctx, task.LegalEntityID, actorID, desc.Scope)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Ctx(ctx).Warn().
				Str("entity_type", string(task.EntityType)).
				Str("legal_entity_id", task.LegalEntityID).
				Msg("no substitute actor available, pausing sync")
			return p.halt(ctx, task, actorID, models.SyncStatePaused, models.OutcomePaused)
		}
		return err
	}

	token, err := p.auth.BearerToken(ctx, substitute)
	if err != nil {
		// The candidate's session looked valid but the token endpoint
		// disagreed; without a usable token the pipeline pauses.
		log.Ctx(ctx).Warn().Err(err).
			Str("user_id", substitute.ID).
			Msg("substitute token acquisition failed, pausing sync")
		return p.halt(ctx, task, actorID, models.SyncStatePaused, models.OutcomePaused)
	}

	return p.retryWithActor(ctx, task, batch, substitute, token)
}

// retryWithActor dispatches a fresh copy of the failed task in a retry
// batch owned by the substitute user, then retires the old batch record.
func (p *RecoveryPolicy) retryWithActor(ctx context.Context, task *models.SyncTask, batch *models.SyncBatch, substitute *models.User, token string) error {
	sealed, err := p.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("failed to seal substitute token: %w", err)
	}

	retry := models.SyncTask{
		EntityType:    task.EntityType,
		LegalEntityID: task.LegalEntityID,
		Page:          task.Page,
		IsFirstLogin:  task.IsFirstLogin,
		Standalone:    task.Standalone,
		ChainTail:     task.ChainTail,
		MaxAttempts:   task.MaxAttempts,
	}

	name := RetryBatchName(batch.Name, task.IsFirstLogin)
	newBatch, err := p.coordinator.Dispatch(ctx, []models.SyncTask{retry}, name, models.BatchOptions{
		LegalEntityID: task.LegalEntityID,
		SealedToken:   sealed,
		ActorID:       substitute.ID,
	})
	if err != nil {
		return err
	}

	// Once the retry batch finishes, the predecessor's failed-task
	// bookkeeping is obsolete.
	oldBatchID := task.BatchID
	p.coordinator.RegisterBatchHooks(newBatch.ID, Hooks{
		Finally: func(ctx context.Context, _ *models.SyncBatch) {
			if err := p.tasks.DeleteFailedByBatch(ctx, oldBatchID); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("batch_id", oldBatchID).Msg("failed-task cleanup failed")
			}
		},
	})

	// Delete the old batch record immediately so bookkeeping is never
	// duplicated between predecessor and retry.
	if err := p.coordinator.DeleteBatch(ctx, oldBatchID); err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("batch", name).
		Str("substitute_user_id", substitute.ID).
		Str("entity_type", string(task.EntityType)).
		Int("page", task.Page).
		Msg("sync retried with substitute actor")
	return nil
}

func (p *RecoveryPolicy) halt(ctx context.Context, task *models.SyncTask, actorID string, state models.SyncState, outcome models.NotificationOutcome) error {
	effectiveType := task.EntityType
	if effectiveType == models.EntityCompleteSync {
		effectiveType = models.EntityOverall
	}
	if err := p.tracker.MarkHalted(ctx, task.LegalEntityID, effectiveType, state, task.IsFirstLogin); err != nil {
		return err
	}
	if err := p.notifier.Notify(ctx, actorID, effectiveType, outcome); err != nil {
		return err
	}
	return p.coordinator.TaskFailed(ctx, task)
}
