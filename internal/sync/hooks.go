package sync

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

// RegisterDefaultHooks installs the completion hooks of every entity
// pipeline. Success notifies the acting user; failure only logs here,
// because the recovery policy already delivered the failed/paused
// notification when it classified the error.
func RegisterDefaultHooks(c *Coordinator, notifier Notifier) {
	for _, desc := range Descriptors() {
		entityType := desc.Type
		if entityType == models.EntityCompleteSync {
			entityType = models.EntityOverall
		}

		c.RegisterHooks(desc.BatchName, Hooks{
			Then: func(ctx context.Context, batch *models.SyncBatch) {
				if err := notifier.Notify(ctx, batch.Options.ActorID, entityType, models.OutcomeCompleted); err != nil {
					log.Ctx(ctx).Warn().Err(err).Str("batch", batch.Name).Msg("completion notification failed")
				}
			},
			Catch: func(ctx context.Context, batch *models.SyncBatch) {
				log.Ctx(ctx).Warn().
					Str("batch", batch.Name).
					Str("legal_entity_id", batch.LegalEntityID).
					Int("failed_tasks", batch.FailedTasks).
					Msg("sync batch resolved with failures")
			},
		})
	}
}
