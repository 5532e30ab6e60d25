package models

import "time"

// NotificationOutcome is the user-facing result of a sync pipeline stage.
type NotificationOutcome string

const (
	OutcomeStarted   NotificationOutcome = "started"
	OutcomeResumed   NotificationOutcome = "resumed"
	OutcomeCompleted NotificationOutcome = "completed"
	OutcomeFailed    NotificationOutcome = "failed"
	OutcomePaused    NotificationOutcome = "paused"
)

// Notification is one entry of a user's sync inbox. User-visible failure
// is always delivered here, never by silently stopping.
type Notification struct {
	ID         string              `gorm:"column:id;primaryKey"`
	UserID     string              `gorm:"column:user_id;index"`
	EntityType EntityType          `gorm:"column:entity_type"`
	Outcome    NotificationOutcome `gorm:"column:outcome"`
	ReadAt     *time.Time          `gorm:"column:read_at"`
	CreatedAt  time.Time           `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notification"
}
