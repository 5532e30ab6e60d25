package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BatchOptions are the durable options every task of a batch can read
// back out without re-deriving them. The bearer token is stored sealed:
// batch rows outlive the process and must never hold plaintext
// credentials at rest.
type BatchOptions struct {
	LegalEntityID string `json:"legal_entity_id"`
	SealedToken   string `json:"token"`
	ActorID       string `json:"actor_id"`
}

func (o BatchOptions) Value() (driver.Value, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch options: %w", err)
	}
	return string(b), nil
}

func (o *BatchOptions) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("unsupported batch options column type %T", value)
	}
}

// TaskIDs is a JSON column holding the ids of tasks that failed inside a
// batch, kept for cleanup once a successor retry batch finishes.
type TaskIDs []string

func (ids TaskIDs) Value() (driver.Value, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task ids: %w", err)
	}
	return string(b), nil
}

func (ids *TaskIDs) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*ids = nil
		return nil
	case []byte:
		return json.Unmarshal(v, ids)
	case string:
		return json.Unmarshal([]byte(v), ids)
	default:
		return fmt.Errorf("unsupported task ids column type %T", value)
	}
}

// SyncBatch is a named, trackable group of queued sync tasks. The name is
// a taxonomy key ("DivisionSync", "retry_EquipmentSync", ...) used when
// scanning for resumable failed batches.
type SyncBatch struct {
	ID            string       `gorm:"column:id;primaryKey"`
	Name          string       `gorm:"column:name;index"`
	LegalEntityID string       `gorm:"column:legal_entity_id;index"`
	Options       BatchOptions `gorm:"column:options;type:jsonb"`
	TotalTasks    int          `gorm:"column:total_tasks"`
	PendingTasks  int          `gorm:"column:pending_tasks"`
	FailedTasks   int          `gorm:"column:failed_tasks"`
	FailedTaskIDs TaskIDs      `gorm:"column:failed_task_ids;type:jsonb"`
	CreatedAt     time.Time    `gorm:"column:created_at"`
	UpdatedAt     time.Time    `gorm:"column:updated_at"`
	FinishedAt    *time.Time   `gorm:"column:finished_at"`
}

// TableName specifies the table name for GORM
func (SyncBatch) TableName() string {
	return "sync_batch"
}

// Resolved reports whether every task of the batch has reached a terminal
// state.
func (b *SyncBatch) Resolved() bool {
	return b.PendingTasks <= 0
}

// Failed reports whether at least one task of the batch failed.
func (b *SyncBatch) Failed() bool {
	return b.FailedTasks > 0
}
