package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
	"github.com/openhealths/ohealth-sub007/internal/repository"
)

// In-memory store implementations shared by the sync tests. They mirror
// the repository semantics closely enough that coordinator and recovery
// flows can run end to end without a database.

type memBatchStore struct {
	mu      gosync.Mutex
	batches map[string]models.SyncBatch
}

func newMemBatchStore() *memBatchStore {
	return &memBatchStore{batches: make(map[string]models.SyncBatch)}
}

func (s *memBatchStore) Create(_ context.Context, batch *models.SyncBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = *batch
	return nil
}

func (s *memBatchStore) GetByID(_ context.Context, batchID string) (*models.SyncBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, repository.ErrBatchNotFound
	}
	copied := b
	return &copied, nil
}

func (s *memBatchStore) AddPending(_ context.Context, batchID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return repository.ErrBatchNotFound
	}
	b.TotalTasks += count
	b.PendingTasks += count
	s.batches[batchID] = b
	return nil
}

func (s *memBatchStore) ResolvePending(_ context.Context, batchID string, failedTaskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return repository.ErrBatchNotFound
	}
	b.PendingTasks--
	if failedTaskID != "" {
		b.FailedTasks++
		b.FailedTaskIDs = append(b.FailedTaskIDs, failedTaskID)
	}
	s.batches[batchID] = b
	return nil
}

func (s *memBatchStore) TryFinish(_ context.Context, batchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return false, repository.ErrBatchNotFound
	}
	if b.PendingTasks > 0 || b.FinishedAt != nil {
		return false, nil
	}
	now := time.Now()
	b.FinishedAt = &now
	s.batches[batchID] = b
	return true, nil
}

func (s *memBatchStore) Delete(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, batchID)
	return nil
}

func (s *memBatchStore) OldestFailed(_ context.Context, baseName, legalEntityID string) (*models.SyncBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.SyncBatch
	for id := range s.batches {
		b := s.batches[id]
		if b.LegalEntityID != legalEntityID || b.FailedTasks == 0 {
			continue
		}
		if !strings.HasSuffix(b.Name, baseName) {
			continue
		}
		if found == nil || b.CreatedAt.Before(found.CreatedAt) {
			copied := b
			found = &copied
		}
	}
	if found == nil {
		return nil, repository.ErrBatchNotFound
	}
	return found, nil
}

type memTaskStore struct {
	mu    gosync.Mutex
	tasks []models.SyncTask

	deletedFailedBatches []string
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{}
}

func (s *memTaskStore) Create(_ context.Context, task *models.SyncTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, *task)
	return nil
}

func (s *memTaskStore) FailedByBatch(_ context.Context, batchID string) ([]models.SyncTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncTask
	for _, t := range s.tasks {
		if t.BatchID == batchID && t.Status == models.TaskStatusFailed {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTaskStore) DeleteFailedByBatch(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedFailedBatches = append(s.deletedFailedBatches, batchID)
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.BatchID == batchID && t.Status == models.TaskStatusFailed {
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	return nil
}

func (s *memTaskStore) byBatch(batchID string) []models.SyncTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncTask
	for _, t := range s.tasks {
		if t.BatchID == batchID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memTaskStore) all() []models.SyncTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

type memStatusStore struct {
	mu     gosync.Mutex
	states map[string]models.SyncState
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{states: make(map[string]models.SyncState)}
}

func statusKey(legalEntityID string, entityType models.EntityType) string {
	return legalEntityID + "/" + string(entityType)
}

func (s *memStatusStore) Upsert(_ context.Context, legalEntityID string, entityType models.EntityType, state models.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[statusKey(legalEntityID, entityType)] = state
	return nil
}

func (s *memStatusStore) Get(_ context.Context, legalEntityID string, entityType models.EntityType) (models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[statusKey(legalEntityID, entityType)]; ok {
		return state, nil
	}
	return models.SyncStatePending, nil
}

func (s *memStatusStore) state(legalEntityID string, entityType models.EntityType) models.SyncState {
	state, _ := s.Get(context.Background(), legalEntityID, entityType)
	return state
}

type fakeSealer struct {
	sealErr error
	openErr error
}

func (f *fakeSealer) Seal(plaintext string) (string, error) {
	if f.sealErr != nil {
		return "", f.sealErr
	}
	return "sealed:" + plaintext, nil
}

func (f *fakeSealer) Open(sealed string) (string, error) {
	if f.openErr != nil {
		return "", f.openErr
	}
	if !strings.HasPrefix(sealed, "sealed:") {
		return "", errors.New("not a sealed value")
	}
	return strings.TrimPrefix(sealed, "sealed:"), nil
}

type sentNotification struct {
	UserID     string
	EntityType models.EntityType
	Outcome    models.NotificationOutcome
}

type fakeNotifier struct {
	mu   gosync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, entityType models.EntityType, outcome models.NotificationOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{UserID: userID, EntityType: entityType, Outcome: outcome})
	return nil
}

func (f *fakeNotifier) byOutcome(outcome models.NotificationOutcome) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotification
	for _, n := range f.sent {
		if n.Outcome == outcome {
			out = append(out, n)
		}
	}
	return out
}

type fakeUserStore struct {
	getByIDFunc        func(ctx context.Context, userID string) (*models.User, error)
	findSubstituteFunc func(ctx context.Context, legalEntityID, excludeUserID, scope string) (*models.User, error)

	substituteCalls int
}

func (f *fakeUserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, userID)
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) FindSubstitute(ctx context.Context, legalEntityID, excludeUserID, scope string) (*models.User, error) {
	f.substituteCalls++
	if f.findSubstituteFunc != nil {
		return f.findSubstituteFunc(ctx, legalEntityID, excludeUserID, scope)
	}
	return nil, repository.ErrUserNotFound
}

type fakeTokenProvider struct {
	bearerTokenFunc func(ctx context.Context, user *models.User) (string, error)
}

func (f *fakeTokenProvider) BearerToken(ctx context.Context, user *models.User) (string, error) {
	if f.bearerTokenFunc != nil {
		return f.bearerTokenFunc(ctx, user)
	}
	return "token-" + user.ID, nil
}

type fakeAPIClient struct {
	searchFunc func(ctx context.Context, token, resource, legalEntityID string, page int) (*ehealth.PagedResponse, error)
}

func (f *fakeAPIClient) Search(ctx context.Context, token, resource, legalEntityID string, page int) (*ehealth.PagedResponse, error) {
	if f.searchFunc != nil {
		return f.searchFunc(ctx, token, resource, legalEntityID, page)
	}
	return &ehealth.PagedResponse{}, nil
}

type fakeRegistryStore struct {
	mu     gosync.Mutex
	counts map[models.EntityType]int
	err    error
}

func newFakeRegistryStore() *fakeRegistryStore {
	return &fakeRegistryStore{counts: make(map[models.EntityType]int)}
}

func (f *fakeRegistryStore) record(t models.EntityType, n int) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[t] += n
	return nil
}

func (f *fakeRegistryStore) UpsertDivisions(_ context.Context, rows []models.Division) error {
	return f.record(models.EntityDivision, len(rows))
}

func (f *fakeRegistryStore) UpsertEmployees(_ context.Context, rows []models.Employee) error {
	return f.record(models.EntityEmployee, len(rows))
}

func (f *fakeRegistryStore) UpsertEquipment(_ context.Context, rows []models.Equipment) error {
	return f.record(models.EntityEquipment, len(rows))
}

func (f *fakeRegistryStore) UpsertHealthcareServices(_ context.Context, rows []models.HealthcareService) error {
	return f.record(models.EntityHealthcareService, len(rows))
}

func (f *fakeRegistryStore) UpsertLicenses(_ context.Context, rows []models.License) error {
	return f.record(models.EntityLicense, len(rows))
}

func (f *fakeRegistryStore) UpsertContracts(_ context.Context, rows []models.Contract) error {
	return f.record(models.EntityContract, len(rows))
}

func (f *fakeRegistryStore) count(t models.EntityType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[t]
}

// pageOf builds a paged list response with n opaque records.
func pageOf(n, pageNumber, totalPages int) *ehealth.PagedResponse {
	resp := &ehealth.PagedResponse{
		Paging: &ehealth.Paging{
			PageNumber:   pageNumber,
			PageSize:     50,
			TotalPages:   totalPages,
			TotalEntries: n,
		},
	}
	for i := 0; i < n; i++ {
		resp.Data = append(resp.Data, []byte(fmt.Sprintf(`{"id":"rec-%d","is_active":true}`, i)))
	}
	return resp
}
