package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

// RegistryRepository persists synchronized eHealth records. Every write
// is an idempotent upsert keyed by the stable eHealth UUID, so replaying
// a page after a retry never duplicates rows.
type RegistryRepository struct {
	db *gorm.DB
}

func NewRegistryRepository(db *gorm.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) upsert(ctx context.Context, rows interface{}, what string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		UpdateAll: true,
	}).Create(rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", what, err)
	}
	return nil
}

func (r *RegistryRepository) UpsertDivisions(ctx context.Context, rows []models.Division) error {
	if len(rows) == 0 {
		return nil
	}
	return r.upsert(ctx, rows, "divisions")
}

func (r *RegistryRepository) UpsertEmployees(ctx context.Context, rows []models.Employee) error {
	if len(rows) == 0 {
		return nil
	}
	return r.upsert(ctx, rows, "employees")
}

func (r *RegistryRepository) UpsertEquipment(ctx context.Context, rows []models.Equipment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.upsert(ctx, rows, "equipment")
}

func (r *RegistryRepository) UpsertHealthcareServices(ctx context.Context, rows []models.HealthcareService) error {
	if len(rows) == 0 {
		return nil
	}
	return r.upsert(ctx, rows, "healthcare services")
}

func (r *RegistryRepository) UpsertLicenses(ctx context.Context, rows []models.License) error {
	if len(rows) == 0 {
		return nil
	}
	return r.upsert(ctx, rows, "licenses")
}

func (r *RegistryRepository) UpsertContracts(ctx context.Context, rows []models.Contract) error {
	if len(rows) == 0 {
		return nil
	}
	return r.upsert(ctx, rows, "contracts")
}
