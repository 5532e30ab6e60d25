package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

type SyncTaskRepository struct {
	db *gorm.DB
}

func NewSyncTaskRepository(db *gorm.DB) *SyncTaskRepository {
	return &SyncTaskRepository{db: db}
}

// Create inserts a new task row.
func (r *SyncTaskRepository) Create(ctx context.Context, task *models.SyncTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}
	return nil
}

// Due retrieves queued tasks whose scheduled time has passed, oldest
// schedule first so page order is preserved.
func (r *SyncTaskRepository) Due(ctx context.Context, queue string, now time.Time, limit int) ([]models.SyncTask, error) {
	var tasks []models.SyncTask
	err := r.db.WithContext(ctx).
		Where("queue = ? AND status = ? AND scheduled_at <= ?", queue, models.TaskStatusQueued, now).
		Order("scheduled_at ASC, created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	return tasks, nil
}

// Lock claims a queued task for a worker instance. The conditional update
// is the mutual exclusion between competing workers: only the instance
// whose update matched a row may execute the task.
func (r *SyncTaskRepository) Lock(ctx context.Context, taskID, instance string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncTask{}).
		Where("id = ? AND status = ?", taskID, models.TaskStatusQueued).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusProcessing,
			"locked_by":  instance,
			"locked_at":  now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to lock task: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Requeue puts a task back on the queue after a transient failure,
// delayed until at.
func (r *SyncTaskRepository) Requeue(ctx context.Context, taskID string, at time.Time, attempts int, lastError string) error {
	result := r.db.WithContext(ctx).Model(&models.SyncTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusQueued,
			"attempts":     attempts,
			"scheduled_at": at,
			"locked_by":    nil,
			"locked_at":    nil,
			"last_error":   lastError,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to requeue task: %w", result.Error)
	}
	return nil
}

// MarkSucceeded finalizes a task row.
func (r *SyncTaskRepository) MarkSucceeded(ctx context.Context, taskID string) error {
	result := r.db.WithContext(ctx).Model(&models.SyncTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusSucceeded,
			"locked_by":  nil,
			"locked_at":  nil,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark task succeeded: %w", result.Error)
	}
	return nil
}

// MarkFailed finalizes a task row with its terminal error.
func (r *SyncTaskRepository) MarkFailed(ctx context.Context, taskID string, lastError string) error {
	result := r.db.WithContext(ctx).Model(&models.SyncTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusFailed,
			"locked_by":  nil,
			"locked_at":  nil,
			"last_error": lastError,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark task failed: %w", result.Error)
	}
	return nil
}

// UnlockStale requeues tasks stuck in processing (worker crash or kill)
// whose lock is older than the threshold.
func (r *SyncTaskRepository) UnlockStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := r.db.WithContext(ctx).Model(&models.SyncTask{}).
		Where("status = ? AND locked_at < ?", models.TaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusQueued,
			"locked_by":  nil,
			"locked_at":  nil,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to unlock stale tasks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FailedByBatch lists the failed task rows of one batch.
func (r *SyncTaskRepository) FailedByBatch(ctx context.Context, batchID string) ([]models.SyncTask, error) {
	var tasks []models.SyncTask
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, models.TaskStatusFailed).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query failed tasks: %w", err)
	}
	return tasks, nil
}

// DeleteFailedByBatch removes the failed task bookkeeping of a batch once
// a successor retry batch has finished.
func (r *SyncTaskRepository) DeleteFailedByBatch(ctx context.Context, batchID string) error {
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, models.TaskStatusFailed).
		Delete(&models.SyncTask{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete failed tasks: %w", err)
	}
	return nil
}
