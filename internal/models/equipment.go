package models

import "time"

// Equipment is a medical device record of a legal entity as registered in
// eHealth.
type Equipment struct {
	ExternalID    string    `gorm:"column:external_id;primaryKey"`
	LegalEntityID string    `gorm:"column:legal_entity_id;index"`
	DivisionID    *string   `gorm:"column:division_id"`
	Type          string    `gorm:"column:type"`
	Status        string    `gorm:"column:status"`
	SerialNumber  *string   `gorm:"column:serial_number"`
	Manufacturer  *string   `gorm:"column:manufacturer"`
	IsActive      bool      `gorm:"column:is_active"`
	SyncedAt      time.Time `gorm:"column:synced_at"`
}

// TableName specifies the table name for GORM
func (Equipment) TableName() string {
	return "equipment"
}
