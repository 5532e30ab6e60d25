package models

import (
	"strings"
	"time"
)

// User is a medical-entity staff member able to act against the eHealth
// API. Substitute-actor selection during failure recovery filters on
// activity, session validity and scopes.
type User struct {
	ID               string     `gorm:"column:id;primaryKey"`
	Email            string     `gorm:"column:email;uniqueIndex"`
	LegalEntityID    string     `gorm:"column:legal_entity_id;index"`
	IsActive         bool       `gorm:"column:is_active"`
	Scopes           string     `gorm:"column:scopes"` // space-separated, eHealth style
	RefreshToken     *string    `gorm:"column:refresh_token"`
	SessionExpiresAt *time.Time `gorm:"column:session_expires_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// HasScope reports whether the user's scope set contains scope.
func (u *User) HasScope(scope string) bool {
	for _, s := range strings.Fields(u.Scopes) {
		if s == scope {
			return true
		}
	}
	return false
}

// HasActiveSession reports whether the user holds an unexpired login
// session at the given instant.
func (u *User) HasActiveSession(now time.Time) bool {
	return u.SessionExpiresAt != nil && u.SessionExpiresAt.After(now)
}
