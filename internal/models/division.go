package models

import "time"

// Division is a subdivision of a legal entity as registered in eHealth.
// Rows are keyed by the stable eHealth UUID so repeated syncs are
// idempotent.
type Division struct {
	ExternalID    string    `gorm:"column:external_id;primaryKey"`
	LegalEntityID string    `gorm:"column:legal_entity_id;index"`
	Name          string    `gorm:"column:name"`
	Type          string    `gorm:"column:type"`
	Status        string    `gorm:"column:status"`
	Email         *string   `gorm:"column:email"`
	Phone         *string   `gorm:"column:phone"`
	IsActive      bool      `gorm:"column:is_active"`
	SyncedAt      time.Time `gorm:"column:synced_at"`
}

// TableName specifies the table name for GORM
func (Division) TableName() string {
	return "division"
}
