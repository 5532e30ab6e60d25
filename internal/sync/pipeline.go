package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

// ErrSyncInProgress is returned when a sync for the same entity type is
// already being processed for the legal entity.
var ErrSyncInProgress = errors.New("sync already in progress for this entity type")

// Pipeline is the programmatic entry point of the sync core: it builds
// and dispatches first-login chains and standalone single-entity runs.
type Pipeline struct {
	coordinator *Coordinator
	tracker     *StatusTracker
	auth        TokenProvider
	sealer      TokenSealer
	notifier    Notifier
}

func NewPipeline(coordinator *Coordinator, tracker *StatusTracker, auth TokenProvider, sealer TokenSealer, notifier Notifier) *Pipeline {
	return &Pipeline{
		coordinator: coordinator,
		tracker:     tracker,
		auth:        auth,
		sealer:      sealer,
		notifier:    notifier,
	}
}

// DispatchFirstLogin starts the bulk onboarding chain for a legal
// entity: every supported entity type synced in sequence, ending with
// the completion marker.
//
// The in-progress guard is a check-then-act on the status row; two
// simultaneous triggers can both pass it. Pipeline ordering makes the
// window harmless for queued work but the check itself is advisory.
func (p *Pipeline) DispatchFirstLogin(ctx context.Context, legalEntityID string, actor *models.User) (*models.SyncBatch, error) {
	state, err := p.tracker.Current(ctx, legalEntityID, models.EntityOverall)
	if err != nil {
		return nil, err
	}
	if state == models.SyncStateProcessing {
		return nil, ErrSyncInProgress
	}

	chain := FirstLoginChain()
	head, tail := chain[0], chain[1:]
	desc, _ := DescriptorFor(head)

	batch, err := p.dispatch(ctx, models.SyncTask{
		EntityType:    head,
		LegalEntityID: legalEntityID,
		Page:          1,
		IsFirstLogin:  true,
		ChainTail:     models.ChainTail(tail),
	}, desc.BatchName, legalEntityID, actor)
	if err != nil {
		return nil, err
	}

	if err := p.tracker.MarkOverall(ctx, legalEntityID, models.SyncStateProcessing); err != nil {
		return nil, err
	}
	if err := p.notifier.Notify(ctx, actor.ID, models.EntityOverall, models.OutcomeStarted); err != nil {
		return nil, err
	}
	return batch, nil
}

// DispatchEntity starts an ad hoc sync of a single entity type. Its
// terminal failure notifies the user independent of any chain.
func (p *Pipeline) DispatchEntity(ctx context.Context, legalEntityID string, entityType models.EntityType, actor *models.User) (*models.SyncBatch, error) {
	desc, ok := DescriptorFor(entityType)
	if !ok || entityType == models.EntityCompleteSync {
		return nil, fmt.Errorf("entity type %q is not syncable", entityType)
	}

	state, err := p.tracker.Current(ctx, legalEntityID, entityType)
	if err != nil {
		return nil, err
	}
	if state == models.SyncStateProcessing {
		return nil, ErrSyncInProgress
	}

	batch, err := p.dispatch(ctx, models.SyncTask{
		EntityType:    entityType,
		LegalEntityID: legalEntityID,
		Page:          1,
		Standalone:    true,
	}, desc.BatchName, legalEntityID, actor)
	if err != nil {
		return nil, err
	}

	if err := p.notifier.Notify(ctx, actor.ID, entityType, models.OutcomeStarted); err != nil {
		return nil, err
	}
	return batch, nil
}

func (p *Pipeline) dispatch(ctx context.Context, task models.SyncTask, name, legalEntityID string, actor *models.User) (*models.SyncBatch, error) {
	token, err := p.auth.BearerToken(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token for dispatch: %w", err)
	}
	sealed, err := p.sealer.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to seal token for dispatch: %w", err)
	}

	return p.coordinator.Dispatch(ctx, []models.SyncTask{task}, name, models.BatchOptions{
		LegalEntityID: legalEntityID,
		SealedToken:   sealed,
		ActorID:       actor.ID,
	})
}
