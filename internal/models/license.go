package models

import "time"

// License is a medical-practice license of a legal entity as registered
// in eHealth.
type License struct {
	ExternalID     string     `gorm:"column:external_id;primaryKey"`
	LegalEntityID  string     `gorm:"column:legal_entity_id;index"`
	Type           string     `gorm:"column:type"`
	IssuedBy       string     `gorm:"column:issued_by"`
	IssuedDate     *time.Time `gorm:"column:issued_date"`
	ExpiryDate     *time.Time `gorm:"column:expiry_date"`
	ActiveFromDate *time.Time `gorm:"column:active_from_date"`
	WhatLicensed   *string    `gorm:"column:what_licensed"`
	IsActive       bool       `gorm:"column:is_active"`
	SyncedAt       time.Time  `gorm:"column:synced_at"`
}

// TableName specifies the table name for GORM
func (License) TableName() string {
	return "license"
}
