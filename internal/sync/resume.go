package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/models"
	"github.com/openhealths/ohealth-sub007/internal/repository"
)

var (
	// ErrNotResumable is returned when the tracked status is neither
	// PAUSED nor FAILED.
	ErrNotResumable = errors.New("sync is not in a resumable state")
	// ErrNothingToResume is returned when no failed batch remains for
	// the entity type.
	ErrNothingToResume = errors.New("no failed batch found to resume")
)

// ResumeController re-dispatches a paused or failed pipeline under the
// currently logged-in actor. This is the manual unblock for the
// "no substitute candidate" auto-pause.
type ResumeController struct {
	coordinator *Coordinator
	tracker     *StatusTracker
	batches     BatchStore
	tasks       TaskStore
	auth        TokenProvider
	sealer      TokenSealer
	notifier    Notifier
}

func NewResumeController(coordinator *Coordinator, tracker *StatusTracker, batches BatchStore, tasks TaskStore, auth TokenProvider, sealer TokenSealer, notifier Notifier) *ResumeController {
	return &ResumeController{
		coordinator: coordinator,
		tracker:     tracker,
		batches:     batches,
		tasks:       tasks,
		auth:        auth,
		sealer:      sealer,
		notifier:    notifier,
	}
}

// Resume finds the oldest unresolved failed batch of the entity type for
// the legal entity and re-dispatches its failed tasks with the acting
// user's fresh token. Callers check the tracker is not PROCESSING before
// invoking; the state check here is advisory, not a mutual-exclusion
// guarantee.
func (rc *ResumeController) Resume(ctx context.Context, legalEntityID string, entityType models.EntityType, actor *models.User) (*models.SyncBatch, error) {
	effectiveType := entityType
	if entityType == models.EntityCompleteSync {
		effectiveType = models.EntityOverall
	}
	state, err := rc.tracker.Current(ctx, legalEntityID, effectiveType)
	if err != nil {
		return nil, err
	}
	if !state.Halted() {
		return nil, ErrNotResumable
	}

	desc, ok := DescriptorFor(entityType)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	// Oldest unresolved failure first, so repeated resumes drain the
	// backlog in order.
	failed, err := rc.batches.OldestFailed(ctx, desc.BatchName, legalEntityID)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, ErrNothingToResume
		}
		return nil, err
	}

	failedTasks, err := rc.tasks.FailedByBatch(ctx, failed.ID)
	if err != nil {
		return nil, err
	}
	if len(failedTasks) == 0 {
		return nil, ErrNothingToResume
	}

	token, err := rc.auth.BearerToken(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token for resume: %w", err)
	}
	sealed, err := rc.sealer.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to seal token for resume: %w", err)
	}

	fresh := make([]models.SyncTask, 0, len(failedTasks))
	for _, t := range failedTasks {
		fresh = append(fresh, models.SyncTask{
			EntityType:    t.EntityType,
			LegalEntityID: t.LegalEntityID,
			Page:          t.Page,
			IsFirstLogin:  t.IsFirstLogin,
			Standalone:    t.Standalone,
			ChainTail:     t.ChainTail,
			MaxAttempts:   t.MaxAttempts,
		})
	}

	firstLogin := failedTasks[0].IsFirstLogin
	name := RetryBatchName(failed.Name, firstLogin)
	batch, err := rc.coordinator.Dispatch(ctx, fresh, name, models.BatchOptions{
		LegalEntityID: legalEntityID,
		SealedToken:   sealed,
		ActorID:       actor.ID,
	})
	if err != nil {
		return nil, err
	}

	oldBatchID := failed.ID
	rc.coordinator.RegisterBatchHooks(batch.ID, Hooks{
		Finally: func(ctx context.Context, _ *models.SyncBatch) {
			if err := rc.tasks.DeleteFailedByBatch(ctx, oldBatchID); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("batch_id", oldBatchID).Msg("failed-task cleanup failed")
			}
		},
	})
	if err := rc.coordinator.DeleteBatch(ctx, oldBatchID); err != nil {
		return nil, err
	}

	if err := rc.notifier.Notify(ctx, actor.ID, effectiveType, models.OutcomeResumed); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("batch", name).
		Str("legal_entity_id", legalEntityID).
		Int("tasks", len(fresh)).
		Msg("paused sync resumed")
	return batch, nil
}
