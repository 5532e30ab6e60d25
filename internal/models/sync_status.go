package models

import "time"

// SyncState is the durable per-(legal entity, entity type) synchronization
// status, read by the UI and by the resume logic.
type SyncState string

const (
	SyncStatePending    SyncState = "pending"
	SyncStateProcessing SyncState = "processing"
	SyncStateCompleted  SyncState = "completed"
	SyncStateFailed     SyncState = "failed"
	// SyncStatePaused marks a recoverable-but-not-automatic halt: no
	// substitute actor was available, a human has to trigger resume.
	SyncStatePaused SyncState = "paused"
)

// Halted reports whether the state is one of the two terminal halt states.
func (s SyncState) Halted() bool {
	return s == SyncStateFailed || s == SyncStatePaused
}

// LegalEntitySyncStatus is one status row. The overall legal-entity row
// uses EntityOverall as its entity type.
type LegalEntitySyncStatus struct {
	LegalEntityID string     `gorm:"column:legal_entity_id;primaryKey"`
	EntityType    EntityType `gorm:"column:entity_type;primaryKey"`
	Status        SyncState  `gorm:"column:status"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (LegalEntitySyncStatus) TableName() string {
	return "legal_entity_sync_status"
}
