package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/models"
)

// Descriptor is one entry of the closed set of synchronizable entity
// types. Each carries its API resource, its batch taxonomy name, the
// permission scope a substitute actor needs, and the persist step mapping
// raw page records into registry rows. Dispatch goes through this table,
// not through inheritance.
type Descriptor struct {
	Type      models.EntityType
	BatchName string
	Scope     string
	Resource  string
	Persist   func(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error
}

var descriptors = []Descriptor{
	{
		Type:      models.EntityDivision,
		BatchName: "DivisionSync",
		Scope:     "division:sync",
		Resource:  "divisions",
		Persist:   persistDivisions,
	},
	{
		Type:      models.EntityEmployee,
		BatchName: "EmployeeSync",
		Scope:     "employee:sync",
		Resource:  "employees",
		Persist:   persistEmployees,
	},
	{
		Type:      models.EntityEquipment,
		BatchName: "EquipmentSync",
		Scope:     "equipment:sync",
		Resource:  "equipment",
		Persist:   persistEquipment,
	},
	{
		Type:      models.EntityHealthcareService,
		BatchName: "HealthcareServiceSync",
		Scope:     "healthcare_service:sync",
		Resource:  "healthcare_services",
		Persist:   persistHealthcareServices,
	},
	{
		Type:      models.EntityLicense,
		BatchName: "LicenseSync",
		Scope:     "license:sync",
		Resource:  "licenses",
		Persist:   persistLicenses,
	},
	{
		Type:      models.EntityContract,
		BatchName: "ContractSync",
		Scope:     "contract:sync",
		Resource:  "contracts",
		Persist:   persistContracts,
	},
	{
		// Terminal marker of a first-login chain: nothing to fetch.
		Type:      models.EntityCompleteSync,
		BatchName: "CompleteSync",
		Scope:     "legal_entity:sync",
	},
}

// DescriptorFor looks up the descriptor of an entity type.
func DescriptorFor(t models.EntityType) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Type == t {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Descriptors returns the full closed set, in chain order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// FirstLoginChain is the ordered entity-type list of the bulk onboarding
// run, ending with the completion marker.
func FirstLoginChain() []models.EntityType {
	return []models.EntityType{
		models.EntityDivision,
		models.EntityEmployee,
		models.EntityEquipment,
		models.EntityHealthcareService,
		models.EntityLicense,
		models.EntityContract,
		models.EntityCompleteSync,
	}
}

func persistDivisions(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error {
	now := time.Now()
	rows := make([]models.Division, 0, len(data))
	for i, raw := range data {
		var res ehealth.DivisionResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("failed to decode division record #%d: %w", i, err)
		}
		rows = append(rows, models.Division{
			ExternalID:    res.ID,
			LegalEntityID: legalEntityID,
			Name:          res.Name,
			Type:          res.Type,
			Status:        res.Status,
			Email:         res.Email,
			Phone:         res.Phone,
			IsActive:      res.IsActive,
			SyncedAt:      now,
		})
	}
	return store.UpsertDivisions(ctx, rows)
}

func persistEmployees(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error {
	now := time.Now()
	rows := make([]models.Employee, 0, len(data))
	for i, raw := range data {
		var res ehealth.EmployeeResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("failed to decode employee record #%d: %w", i, err)
		}
		name := res.Party.LastName + " " + res.Party.FirstName
		if res.Party.SecondName != "" {
			name += " " + res.Party.SecondName
		}
		rows = append(rows, models.Employee{
			ExternalID:    res.ID,
			LegalEntityID: legalEntityID,
			DivisionID:    res.DivisionID,
			PartyName:     name,
			Position:      res.Position,
			EmployeeType:  res.EmployeeType,
			Status:        res.Status,
			StartDate:     parseDate(res.StartDate),
			EndDate:       parseDate(res.EndDate),
			IsActive:      res.IsActive,
			SyncedAt:      now,
		})
	}
	return store.UpsertEmployees(ctx, rows)
}

func persistEquipment(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error {
	now := time.Now()
	rows := make([]models.Equipment, 0, len(data))
	for i, raw := range data {
		var res ehealth.EquipmentResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("failed to decode equipment record #%d: %w", i, err)
		}
		rows = append(rows, models.Equipment{
			ExternalID:    res.ID,
			LegalEntityID: legalEntityID,
			DivisionID:    res.DivisionID,
			Type:          res.Type,
			Status:        res.Status,
			SerialNumber:  res.SerialNumber,
			Manufacturer:  res.Manufacturer,
			IsActive:      res.IsActive,
			SyncedAt:      now,
		})
	}
	return store.UpsertEquipment(ctx, rows)
}

func persistHealthcareServices(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error {
	now := time.Now()
	rows := make([]models.HealthcareService, 0, len(data))
	for i, raw := range data {
		var res ehealth.HealthcareServiceResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("failed to decode healthcare service record #%d: %w", i, err)
		}
		rows = append(rows, models.HealthcareService{
			ExternalID:     res.ID,
			LegalEntityID:  legalEntityID,
			DivisionID:     res.DivisionID,
			Category:       res.Category,
			SpecialityType: res.SpecialityType,
			Status:         res.Status,
			IsActive:       res.IsActive,
			SyncedAt:       now,
		})
	}
	return store.UpsertHealthcareServices(ctx, rows)
}

func persistLicenses(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error {
	now := time.Now()
	rows := make([]models.License, 0, len(data))
	for i, raw := range data {
		var res ehealth.LicenseResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("failed to decode license record #%d: %w", i, err)
		}
		rows = append(rows, models.License{
			ExternalID:     res.ID,
			LegalEntityID:  legalEntityID,
			Type:           res.Type,
			IssuedBy:       res.IssuedBy,
			IssuedDate:     parseDate(res.IssuedDate),
			ExpiryDate:     parseDate(res.ExpiryDate),
			ActiveFromDate: parseDate(res.ActiveFromDate),
			WhatLicensed:   res.WhatLicensed,
			IsActive:       res.IsActive,
			SyncedAt:       now,
		})
	}
	return store.UpsertLicenses(ctx, rows)
}

func persistContracts(ctx context.Context, store RegistryStore, legalEntityID string, data []json.RawMessage) error {
	now := time.Now()
	rows := make([]models.Contract, 0, len(data))
	for i, raw := range data {
		var res ehealth.ContractResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return fmt.Errorf("failed to decode contract record #%d: %w", i, err)
		}
		rows = append(rows, models.Contract{
			ExternalID:     res.ID,
			LegalEntityID:  legalEntityID,
			ContractNumber: res.ContractNumber,
			Status:         res.Status,
			StartDate:      parseDate(res.StartDate),
			EndDate:        parseDate(res.EndDate),
			ContractorBase: res.ContractorBase,
			IsSuspended:    res.IsSuspended,
			SyncedAt:       now,
		})
	}
	return store.UpsertContracts(ctx, rows)
}

// parseDate reads the eHealth date format, tolerating full timestamps.
func parseDate(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t
		}
	}
	return nil
}
