package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

func TestStatusTracker_UnknownPairDefaultsToPending(t *testing.T) {
	tracker := NewStatusTracker(newMemStatusStore())
	state, err := tracker.Current(context.Background(), "le-1", models.EntityDivision)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatePending, state)
}

func TestStatusTracker_MarkHaltedCascadesOnFirstLogin(t *testing.T) {
	store := newMemStatusStore()
	tracker := NewStatusTracker(store)
	ctx := context.Background()

	require.NoError(t, tracker.MarkHalted(ctx, "le-1", models.EntityEquipment, models.SyncStateFailed, true))
	assert.Equal(t, models.SyncStateFailed, store.state("le-1", models.EntityEquipment))
	assert.Equal(t, models.SyncStateFailed, store.state("le-1", models.EntityOverall))
}

func TestStatusTracker_MarkHaltedStandaloneLeavesOverallAlone(t *testing.T) {
	store := newMemStatusStore()
	tracker := NewStatusTracker(store)
	ctx := context.Background()

	require.NoError(t, tracker.MarkHalted(ctx, "le-1", models.EntityEquipment, models.SyncStatePaused, false))
	assert.Equal(t, models.SyncStatePaused, store.state("le-1", models.EntityEquipment))
	assert.Equal(t, models.SyncStatePending, store.state("le-1", models.EntityOverall))
}

func TestStatusTracker_MarkHaltedRejectsNonHaltStates(t *testing.T) {
	tracker := NewStatusTracker(newMemStatusStore())
	err := tracker.MarkHalted(context.Background(), "le-1", models.EntityDivision, models.SyncStateCompleted, false)
	assert.Error(t, err)
}
