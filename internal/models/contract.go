package models

import "time"

// Contract is a capitation contract of a legal entity as registered in
// eHealth.
type Contract struct {
	ExternalID     string     `gorm:"column:external_id;primaryKey"`
	LegalEntityID  string     `gorm:"column:legal_entity_id;index"`
	ContractNumber string     `gorm:"column:contract_number"`
	Status         string     `gorm:"column:status"`
	StartDate      *time.Time `gorm:"column:start_date"`
	EndDate        *time.Time `gorm:"column:end_date"`
	ContractorBase *string    `gorm:"column:contractor_base"`
	IsSuspended    bool       `gorm:"column:is_suspended"`
	SyncedAt       time.Time  `gorm:"column:synced_at"`
}

// TableName specifies the table name for GORM
func (Contract) TableName() string {
	return "contract"
}
