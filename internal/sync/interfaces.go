package sync

import (
	"context"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
)

// Collaborator interfaces of the sync core. Concrete implementations
// live in repository, ehealth and crypto; tests substitute fakes.

// TaskStore persists task rows.
type TaskStore interface {
	Create(ctx context.Context, task *models.SyncTask) error
	FailedByBatch(ctx context.Context, batchID string) ([]models.SyncTask, error)
	DeleteFailedByBatch(ctx context.Context, batchID string) error
}

// BatchStore persists batch rows and their counters.
type BatchStore interface {
	Create(ctx context.Context, batch *models.SyncBatch) error
	GetByID(ctx context.Context, batchID string) (*models.SyncBatch, error)
	AddPending(ctx context.Context, batchID string, count int) error
	ResolvePending(ctx context.Context, batchID string, failedTaskID string) error
	TryFinish(ctx context.Context, batchID string) (bool, error)
	Delete(ctx context.Context, batchID string) error
	OldestFailed(ctx context.Context, baseName, legalEntityID string) (*models.SyncBatch, error)
}

// StatusStore persists per-(legal entity, entity type) sync states.
type StatusStore interface {
	Upsert(ctx context.Context, legalEntityID string, entityType models.EntityType, state models.SyncState) error
	Get(ctx context.Context, legalEntityID string, entityType models.EntityType) (models.SyncState, error)
}

// UserStore resolves acting users and substitute candidates.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	FindSubstitute(ctx context.Context, legalEntityID, excludeUserID, scope string) (*models.User, error)
}

// RegistryStore persists synchronized eHealth records idempotently.
type RegistryStore interface {
	UpsertDivisions(ctx context.Context, rows []models.Division) error
	UpsertEmployees(ctx context.Context, rows []models.Employee) error
	UpsertEquipment(ctx context.Context, rows []models.Equipment) error
	UpsertHealthcareServices(ctx context.Context, rows []models.HealthcareService) error
	UpsertLicenses(ctx context.Context, rows []models.License) error
	UpsertContracts(ctx context.Context, rows []models.Contract) error
}

// APIClient is the eHealth API collaborator.
type APIClient interface {
	Search(ctx context.Context, token, resource, legalEntityID string, page int) (*ehealth.PagedResponse, error)
}

// TokenProvider acquires fresh bearer tokens for a user.
type TokenProvider interface {
	BearerToken(ctx context.Context, user *models.User) (string, error)
}

// TokenSealer encrypts tokens for durable batch options and decrypts
// them inside task execution.
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Notifier delivers sync outcomes to the user who initiated a run.
type Notifier interface {
	Notify(ctx context.Context, userID string, entityType models.EntityType, outcome models.NotificationOutcome) error
}
