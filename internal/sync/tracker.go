package sync

import (
	"context"
	"fmt"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

// StatusTracker centralizes every write to the per-(legal entity, entity
// type) status rows so the first-login cascade invariant lives in one
// place instead of being scattered across call sites.
type StatusTracker struct {
	store StatusStore
}

func NewStatusTracker(store StatusStore) *StatusTracker {
	return &StatusTracker{store: store}
}

func (t *StatusTracker) MarkProcessing(ctx context.Context, legalEntityID string, entityType models.EntityType) error {
	return t.store.Upsert(ctx, legalEntityID, entityType, models.SyncStateProcessing)
}

func (t *StatusTracker) MarkCompleted(ctx context.Context, legalEntityID string, entityType models.EntityType) error {
	return t.store.Upsert(ctx, legalEntityID, entityType, models.SyncStateCompleted)
}

// MarkOverall writes the overall legal-entity row.
func (t *StatusTracker) MarkOverall(ctx context.Context, legalEntityID string, state models.SyncState) error {
	return t.store.Upsert(ctx, legalEntityID, models.EntityOverall, state)
}

// MarkHalted writes a FAILED or PAUSED entity-type status. On a
// first-login run the same state cascades to the overall legal-entity
// row; ad hoc syncs leave the overall row alone.
func (t *StatusTracker) MarkHalted(ctx context.Context, legalEntityID string, entityType models.EntityType, state models.SyncState, firstLogin bool) error {
	if !state.Halted() {
		return fmt.Errorf("state %q is not a halt state", state)
	}
	if err := t.store.Upsert(ctx, legalEntityID, entityType, state); err != nil {
		return err
	}
	if firstLogin {
		return t.store.Upsert(ctx, legalEntityID, models.EntityOverall, state)
	}
	return nil
}

// Current reads the tracked state of one (legal entity, entity type)
// pair.
func (t *StatusTracker) Current(ctx context.Context, legalEntityID string, entityType models.EntityType) (models.SyncState, error) {
	return t.store.Get(ctx, legalEntityID, entityType)
}
