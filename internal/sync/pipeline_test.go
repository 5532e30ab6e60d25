package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

type pipelineFixture struct {
	pipeline *Pipeline
	batches  *memBatchStore
	tasks    *memTaskStore
	status   *memStatusStore
	notifier *fakeNotifier
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		batches:  newMemBatchStore(),
		tasks:    newMemTaskStore(),
		status:   newMemStatusStore(),
		notifier: &fakeNotifier{},
	}
	coordinator := NewCoordinator(f.batches, f.tasks)
	f.pipeline = NewPipeline(coordinator, NewStatusTracker(f.status), &fakeTokenProvider{}, &fakeSealer{}, f.notifier)
	return f
}

func actor() *models.User {
	return &models.User{ID: "user-1", LegalEntityID: "le-1", IsActive: true}
}

func TestPipeline_DispatchFirstLogin(t *testing.T) {
	f := newPipelineFixture()

	batch, err := f.pipeline.DispatchFirstLogin(context.Background(), "le-1", actor())
	require.NoError(t, err)
	assert.Equal(t, "DivisionSync", batch.Name)

	created := f.tasks.byBatch(batch.ID)
	require.Len(t, created, 1, "the chain starts with a single head task")
	head := created[0]
	assert.Equal(t, models.EntityDivision, head.EntityType)
	assert.Equal(t, 1, head.Page)
	assert.True(t, head.IsFirstLogin)
	assert.Equal(t, models.ChainTail{
		models.EntityEmployee,
		models.EntityEquipment,
		models.EntityHealthcareService,
		models.EntityLicense,
		models.EntityContract,
		models.EntityCompleteSync,
	}, head.ChainTail)

	assert.Equal(t, models.SyncStateProcessing, f.status.state("le-1", models.EntityOverall))

	started := f.notifier.byOutcome(models.OutcomeStarted)
	require.Len(t, started, 1)
	assert.Equal(t, models.EntityOverall, started[0].EntityType)
}

func TestPipeline_DispatchFirstLogin_RejectsWhileProcessing(t *testing.T) {
	f := newPipelineFixture()
	require.NoError(t, f.status.Upsert(context.Background(), "le-1", models.EntityOverall, models.SyncStateProcessing))

	_, err := f.pipeline.DispatchFirstLogin(context.Background(), "le-1", actor())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Empty(t, f.tasks.all())
}

func TestPipeline_DispatchEntity(t *testing.T) {
	f := newPipelineFixture()

	batch, err := f.pipeline.DispatchEntity(context.Background(), "le-1", models.EntityLicense, actor())
	require.NoError(t, err)
	assert.Equal(t, "LicenseSync", batch.Name)

	created := f.tasks.byBatch(batch.ID)
	require.Len(t, created, 1)
	assert.True(t, created[0].Standalone)
	assert.Empty(t, created[0].ChainTail)

	started := f.notifier.byOutcome(models.OutcomeStarted)
	require.Len(t, started, 1)
	assert.Equal(t, models.EntityLicense, started[0].EntityType)
}

func TestPipeline_DispatchEntity_RejectsWhileProcessing(t *testing.T) {
	f := newPipelineFixture()
	require.NoError(t, f.status.Upsert(context.Background(), "le-1", models.EntityContract, models.SyncStateProcessing))

	_, err := f.pipeline.DispatchEntity(context.Background(), "le-1", models.EntityContract, actor())
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestPipeline_DispatchEntity_RejectsCompleteSyncMarker(t *testing.T) {
	f := newPipelineFixture()
	_, err := f.pipeline.DispatchEntity(context.Background(), "le-1", models.EntityCompleteSync, actor())
	assert.Error(t, err)
}

func TestPipeline_TokenNeverStoredInPlaintext(t *testing.T) {
	f := newPipelineFixture()

	batch, err := f.pipeline.DispatchEntity(context.Background(), "le-1", models.EntityDivision, actor())
	require.NoError(t, err)

	stored, err := f.batches.GetByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Options.SealedToken, "sealed:"))
	assert.NotEqual(t, "token-user-1", stored.Options.SealedToken,
		"the durable batch row must never carry the raw bearer token")
}
