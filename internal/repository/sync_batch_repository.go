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

var ErrBatchNotFound = errors.New("batch not found")

type SyncBatchRepository struct {
	db *gorm.DB
}

func NewSyncBatchRepository(db *gorm.DB) *SyncBatchRepository {
	return &SyncBatchRepository{db: db}
}

// Create inserts a new batch row.
func (r *SyncBatchRepository) Create(ctx context.Context, batch *models.SyncBatch) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create sync batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch by ID.
func (r *SyncBatchRepository) GetByID(ctx context.Context, batchID string) (*models.SyncBatch, error) {
	var batch models.SyncBatch
	result := r.db.WithContext(ctx).First(&batch, "id = ?", batchID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", result.Error)
	}
	return &batch, nil
}

// AddPending accounts for a continuation task appended to a running
// batch.
func (r *SyncBatchRepository) AddPending(ctx context.Context, batchID string, count int) error {
	result := r.db.WithContext(ctx).Model(&models.SyncBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"total_tasks":   gorm.Expr("total_tasks + ?", count),
			"pending_tasks": gorm.Expr("pending_tasks + ?", count),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to add pending tasks: %w", result.Error)
	}
	return nil
}

// ResolvePending accounts for one task leaving the pending set. When the
// task failed its id is recorded for later cleanup.
func (r *SyncBatchRepository) ResolvePending(ctx context.Context, batchID string, failedTaskID string) error {
	updates := map[string]interface{}{
		"pending_tasks": gorm.Expr("pending_tasks - 1"),
		"updated_at":    time.Now(),
	}
	if failedTaskID != "" {
		updates["failed_tasks"] = gorm.Expr("failed_tasks + 1")
		updates["failed_task_ids"] = gorm.Expr("failed_task_ids || ?::jsonb", fmt.Sprintf("[%q]", failedTaskID))
	}
	result := r.db.WithContext(ctx).Model(&models.SyncBatch{}).
		Where("id = ?", batchID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to resolve pending task: %w", result.Error)
	}
	return nil
}

// TryFinish stamps finished_at exactly once for a fully resolved batch.
// Returns true only for the caller that won the stamp, so completion
// hooks fire a single time.
func (r *SyncBatchRepository) TryFinish(ctx context.Context, batchID string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncBatch{}).
		Where("id = ? AND pending_tasks <= 0 AND finished_at IS NULL", batchID).
		Updates(map[string]interface{}{
			"finished_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to finish batch: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Delete removes a batch record. Used when a retry batch supersedes it so
// bookkeeping is never duplicated.
func (r *SyncBatchRepository) Delete(ctx context.Context, batchID string) error {
	if err := r.db.WithContext(ctx).Delete(&models.SyncBatch{}, "id = ?", batchID).Error; err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// OldestFailed finds the oldest unresolved failed batch of one entity
// pipeline for a legal entity. Name matching is by suffix so retry
// batches ("retry_EquipmentSync") are found under their base name.
func (r *SyncBatchRepository) OldestFailed(ctx context.Context, baseName, legalEntityID string) (*models.SyncBatch, error) {
	var batch models.SyncBatch
	result := r.db.WithContext(ctx).
		Where("legal_entity_id = ? AND failed_tasks > 0 AND name LIKE ?", legalEntityID, "%"+baseName).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}}).
		First(&batch)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to find failed batch: %w", result.Error)
	}
	return &batch, nil
}
