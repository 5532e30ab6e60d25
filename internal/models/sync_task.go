package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type SyncTaskStatus string

const (
	TaskStatusQueued     SyncTaskStatus = "queued"     // Waiting for a worker slot
	TaskStatusProcessing SyncTaskStatus = "processing" // Locked by a worker instance
	TaskStatusSucceeded  SyncTaskStatus = "succeeded"
	TaskStatusFailed     SyncTaskStatus = "failed" // Attempts exhausted or non-retryable error
)

// ChainTail is the ordered list of entity types still to be synced after
// the current one. Stored as a JSON column; tasks never mutate it in
// place, continuations and retries copy it into a fresh row.
type ChainTail []EntityType

func (t ChainTail) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chain tail: %w", err)
	}
	return string(b), nil
}

func (t *ChainTail) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported chain tail column type %T", value)
	}
}

// SyncTask is one unit of work: fetch page Page of EntityType for one
// legal entity, persist it, and decide what runs next. A task row is
// value-like; the next page or a retry is always a new row.
type SyncTask struct {
	ID            string         `gorm:"column:id;primaryKey"`
	BatchID       string         `gorm:"column:batch_id;index"`
	EntityType    EntityType     `gorm:"column:entity_type"`
	LegalEntityID string         `gorm:"column:legal_entity_id;index"`
	Page          int            `gorm:"column:page"`
	IsFirstLogin  bool           `gorm:"column:is_first_login"`
	Standalone    bool           `gorm:"column:standalone"`
	ChainTail     ChainTail      `gorm:"column:chain_tail;type:jsonb"`
	Queue         string         `gorm:"column:queue;index"`
	Status        SyncTaskStatus `gorm:"column:status;index"`
	Attempts      int            `gorm:"column:attempts"`
	MaxAttempts   int            `gorm:"column:max_attempts"`
	ScheduledAt   time.Time      `gorm:"column:scheduled_at;index"`
	LockedBy      *string        `gorm:"column:locked_by"`
	LockedAt      *time.Time     `gorm:"column:locked_at"`
	LastError     *string        `gorm:"column:last_error"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (SyncTask) TableName() string {
	return "sync_task"
}
