package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return &user, nil
}

// FindSubstitute picks the first user able to take over a failed sync:
// not the excluded actor, an active employee of the legal entity, holding
// an unexpired session, carrying the required scope. Query order makes
// selection deterministic.
func (r *UserRepository) FindSubstitute(ctx context.Context, legalEntityID, excludeUserID, scope string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).
		Where("legal_entity_id = ? AND id <> ? AND is_active = TRUE", legalEntityID, excludeUserID).
		Where("session_expires_at > ?", time.Now()).
		Where("scopes LIKE ?", "%"+scope+"%").
		Order("created_at ASC").
		First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find substitute user: %w", result.Error)
	}
	return &user, nil
}
