package models

import "time"

// HealthcareService is a service offering of a division as registered in
// eHealth.
type HealthcareService struct {
	ExternalID     string    `gorm:"column:external_id;primaryKey"`
	LegalEntityID  string    `gorm:"column:legal_entity_id;index"`
	DivisionID     *string   `gorm:"column:division_id"`
	Category       string    `gorm:"column:category"`
	SpecialityType *string   `gorm:"column:speciality_type"`
	Status         string    `gorm:"column:status"`
	IsActive       bool      `gorm:"column:is_active"`
	SyncedAt       time.Time `gorm:"column:synced_at"`
}

// TableName specifies the table name for GORM
func (HealthcareService) TableName() string {
	return "healthcare_service"
}
