package models

import "time"

// Employee is a staff record of a legal entity as registered in eHealth.
type Employee struct {
	ExternalID    string     `gorm:"column:external_id;primaryKey"`
	LegalEntityID string     `gorm:"column:legal_entity_id;index"`
	DivisionID    *string    `gorm:"column:division_id"`
	PartyName     string     `gorm:"column:party_name"`
	Position      string     `gorm:"column:position"`
	EmployeeType  string     `gorm:"column:employee_type"`
	Status        string     `gorm:"column:status"`
	StartDate     *time.Time `gorm:"column:start_date"`
	EndDate       *time.Time `gorm:"column:end_date"`
	IsActive      bool       `gorm:"column:is_active"`
	SyncedAt      time.Time  `gorm:"column:synced_at"`
}

// TableName specifies the table name for GORM
func (Employee) TableName() string {
	return "employee"
}
