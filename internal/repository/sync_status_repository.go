package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

type SyncStatusRepository struct {
	db *gorm.DB
}

func NewSyncStatusRepository(db *gorm.DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// Upsert writes the status of one (legal entity, entity type) pair.
// Last write wins; pipeline ordering keeps writers sequential per pair.
func (r *SyncStatusRepository) Upsert(ctx context.Context, legalEntityID string, entityType models.EntityType, state models.SyncState) error {
	row := models.LegalEntitySyncStatus{
		LegalEntityID: legalEntityID,
		EntityType:    entityType,
		Status:        state,
		UpdatedAt:     time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "legal_entity_id"}, {Name: "entity_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

// Get reads the status of one (legal entity, entity type) pair. A missing
// row reads as pending.
func (r *SyncStatusRepository) Get(ctx context.Context, legalEntityID string, entityType models.EntityType) (models.SyncState, error) {
	var row models.LegalEntitySyncStatus
	result := r.db.WithContext(ctx).
		First(&row, "legal_entity_id = ? AND entity_type = ?", legalEntityID, entityType)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.SyncStatePending, nil
		}
		return "", fmt.Errorf("failed to get sync status: %w", result.Error)
	}
	return row.Status, nil
}
