package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

// notificationStore is the slice of NotificationRepository the notifier
// needs.
type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// InboxNotifier delivers outcomes as durable inbox entries read by the
// UI layer.
type InboxNotifier struct {
	store notificationStore
}

func NewInboxNotifier(store notificationStore) *InboxNotifier {
	return &InboxNotifier{store: store}
}

func (n *InboxNotifier) Notify(ctx context.Context, userID string, entityType models.EntityType, outcome models.NotificationOutcome) error {
	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("entity_type", string(entityType)).
		Str("outcome", string(outcome)).
		Msg("sync notification")

	return n.store.Create(ctx, &models.Notification{
		ID:         uuid.New().String(),
		UserID:     userID,
		EntityType: entityType,
		Outcome:    outcome,
		CreatedAt:  time.Now(),
	})
}
