package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
)

type runnerFixture struct {
	runner      *Runner
	coordinator *Coordinator
	batches     *memBatchStore
	tasks       *memTaskStore
	status      *memStatusStore
	registry    *fakeRegistryStore
	client      *fakeAPIClient
	sealer      *fakeSealer
}

func newRunnerFixture() *runnerFixture {
	f := &runnerFixture{
		batches:  newMemBatchStore(),
		tasks:    newMemTaskStore(),
		status:   newMemStatusStore(),
		registry: newFakeRegistryStore(),
		client:   &fakeAPIClient{},
		sealer:   &fakeSealer{},
	}
	f.coordinator = NewCoordinator(f.batches, f.tasks)
	f.runner = NewRunner(f.client, f.registry, NewStatusTracker(f.status), f.coordinator, NewLimiter(50), f.sealer)
	return f
}

// dispatchOne creates a batch around a single task and returns the task
// as the worker would load it.
func (f *runnerFixture) dispatchOne(t *testing.T, task models.SyncTask, batchName string) models.SyncTask {
	t.Helper()
	batch, err := f.coordinator.Dispatch(context.Background(), []models.SyncTask{task}, batchName, models.BatchOptions{
		LegalEntityID: task.LegalEntityID,
		SealedToken:   "sealed:tok-1",
		ActorID:       "user-1",
	})
	require.NoError(t, err)
	created := f.tasks.byBatch(batch.ID)
	require.Len(t, created, 1)
	return created[0]
}

func TestRunnerHandle_MultiPageSchedulesContinuation(t *testing.T) {
	f := newRunnerFixture()
	f.client.searchFunc = func(_ context.Context, token, resource, legalEntityID string, page int) (*ehealth.PagedResponse, error) {
		assert.Equal(t, "tok-1", token)
		assert.Equal(t, "equipment", resource)
		assert.Equal(t, "le-1", legalEntityID)
		assert.Equal(t, 1, page)
		return pageOf(20, 1, 3), nil
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityEquipment,
		LegalEntityID: "le-1",
		Page:          1,
		Standalone:    true,
	}, "EquipmentSync")

	before := time.Now()
	require.NoError(t, f.runner.Handle(context.Background(), &task))

	assert.Equal(t, 20, f.registry.count(models.EntityEquipment))
	assert.Equal(t, models.SyncStateProcessing, f.status.state("le-1", models.EntityEquipment))

	created := f.tasks.byBatch(task.BatchID)
	require.Len(t, created, 2, "continuation must land in the same batch")
	next := created[1]
	assert.Equal(t, models.EntityEquipment, next.EntityType)
	assert.Equal(t, 2, next.Page)
	assert.True(t, next.Standalone)
	// Continuations are delayed by the page-fetch quota, never immediate.
	assert.False(t, next.ScheduledAt.Before(before.Add(2*time.Second)))

	batch, err := f.batches.GetByID(context.Background(), task.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.PendingTasks)
}

func TestRunnerHandle_LastPageCompletesStandaloneRun(t *testing.T) {
	f := newRunnerFixture()
	f.client.searchFunc = func(_ context.Context, _, _, _ string, _ int) (*ehealth.PagedResponse, error) {
		return pageOf(5, 3, 3), nil
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityDivision,
		LegalEntityID: "le-1",
		Page:          3,
		Standalone:    true,
	}, "DivisionSync")

	require.NoError(t, f.runner.Handle(context.Background(), &task))

	assert.Equal(t, models.SyncStateCompleted, f.status.state("le-1", models.EntityDivision))
	assert.Len(t, f.tasks.byBatch(task.BatchID), 1, "last page must not schedule a continuation")
}

func TestRunnerHandle_MissingPagingTreatedAsLastPage(t *testing.T) {
	f := newRunnerFixture()
	f.client.searchFunc = func(_ context.Context, _, _, _ string, _ int) (*ehealth.PagedResponse, error) {
		return &ehealth.PagedResponse{Data: nil, Paging: nil}, nil
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityLicense,
		LegalEntityID: "le-1",
		Page:          1,
		Standalone:    true,
	}, "LicenseSync")

	require.NoError(t, f.runner.Handle(context.Background(), &task))

	assert.Equal(t, models.SyncStateCompleted, f.status.state("le-1", models.EntityLicense))
	assert.Len(t, f.tasks.byBatch(task.BatchID), 1)
}

func TestRunnerHandle_NilResponseTreatedAsEmptyLastPage(t *testing.T) {
	f := newRunnerFixture()
	f.client.searchFunc = func(_ context.Context, _, _, _ string, _ int) (*ehealth.PagedResponse, error) {
		return nil, nil
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityContract,
		LegalEntityID: "le-1",
		Page:          1,
		Standalone:    true,
	}, "ContractSync")

	require.NoError(t, f.runner.Handle(context.Background(), &task))
	assert.Equal(t, models.SyncStateCompleted, f.status.state("le-1", models.EntityContract))
}

func TestRunnerHandle_RepeatedCompletionIsIdempotent(t *testing.T) {
	f := newRunnerFixture()
	f.client.searchFunc = func(_ context.Context, _, _, _ string, _ int) (*ehealth.PagedResponse, error) {
		return pageOf(2, 1, 1), nil
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityDivision,
		LegalEntityID: "le-1",
		Page:          1,
		Standalone:    true,
	}, "DivisionSync")

	require.NoError(t, f.runner.Handle(context.Background(), &task))
	require.NoError(t, f.runner.Handle(context.Background(), &task))

	assert.Equal(t, models.SyncStateCompleted, f.status.state("le-1", models.EntityDivision))
	assert.Len(t, f.tasks.byBatch(task.BatchID), 1, "re-running a final page must not branch")
}

func TestRunnerHandle_ChainDispatchesNextEntityType(t *testing.T) {
	f := newRunnerFixture()
	f.client.searchFunc = func(_ context.Context, _, _, _ string, _ int) (*ehealth.PagedResponse, error) {
		return pageOf(3, 1, 1), nil
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityDivision,
		LegalEntityID: "le-1",
		Page:          1,
		IsFirstLogin:  true,
		ChainTail:     models.ChainTail{models.EntityEmployee, models.EntityCompleteSync},
	}, "DivisionSync")

	require.NoError(t, f.runner.Handle(context.Background(), &task))

	// Last task of its type: the predecessor completes before the
	// successor starts.
	assert.Equal(t, models.SyncStateCompleted, f.status.state("le-1", models.EntityDivision))

	all := f.tasks.all()
	require.Len(t, all, 2)
	next := all[1]
	assert.Equal(t, models.EntityEmployee, next.EntityType)
	assert.Equal(t, 1, next.Page)
	assert.True(t, next.IsFirstLogin)
	assert.Equal(t, models.ChainTail{models.EntityCompleteSync}, next.ChainTail)
	assert.NotEqual(t, task.BatchID, next.BatchID, "chain successor runs in its own batch")

	nextBatch, err := f.batches.GetByID(context.Background(), next.BatchID)
	require.NoError(t, err)
	assert.Equal(t, "EmployeeSync", nextBatch.Name)
	assert.Equal(t, "user-1", nextBatch.Options.ActorID, "acting user carries across the chain")
	assert.Equal(t, "sealed:tok-1", nextBatch.Options.SealedToken, "token is re-sealed, never stored raw")
}

func TestRunnerHandle_CompleteSyncMarksOverall(t *testing.T) {
	f := newRunnerFixture()

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityCompleteSync,
		LegalEntityID: "le-1",
		IsFirstLogin:  true,
	}, "CompleteSync")

	require.NoError(t, f.runner.Handle(context.Background(), &task))
	assert.Equal(t, models.SyncStateCompleted, f.status.state("le-1", models.EntityOverall))
}

func TestRunnerHandle_MissingTokenIsFatal(t *testing.T) {
	f := newRunnerFixture()

	batch, err := f.coordinator.Dispatch(context.Background(), []models.SyncTask{{
		EntityType:    models.EntityDivision,
		LegalEntityID: "le-1",
		Page:          1,
	}}, "DivisionSync", models.BatchOptions{LegalEntityID: "le-1", ActorID: "user-1"})
	require.NoError(t, err)
	task := f.tasks.byBatch(batch.ID)[0]

	err = f.runner.Handle(context.Background(), &task)
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestRunnerHandle_UndecryptableTokenIsFatal(t *testing.T) {
	f := newRunnerFixture()
	f.sealer.openErr = assert.AnError

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityDivision,
		LegalEntityID: "le-1",
		Page:          1,
	}, "DivisionSync")

	err := f.runner.Handle(context.Background(), &task)
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestRunnerHandle_APIErrorPropagates(t *testing.T) {
	f := newRunnerFixture()
	apiErr := &ehealth.Error{Code: 401, Message: "token expired"}
	f.client.searchFunc = func(_ context.Context, _, _, _ string, _ int) (*ehealth.PagedResponse, error) {
		return nil, apiErr
	}

	task := f.dispatchOne(t, models.SyncTask{
		EntityType:    models.EntityEmployee,
		LegalEntityID: "le-1",
		Page:          2,
		Standalone:    true,
	}, "EmployeeSync")

	err := f.runner.Handle(context.Background(), &task)
	assert.True(t, ehealth.IsActorRetryable(err))
	// Status stays PROCESSING; the recovery policy owns the halt.
	assert.Equal(t, models.SyncStateProcessing, f.status.state("le-1", models.EntityEmployee))
}
