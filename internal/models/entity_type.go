package models

// EntityType identifies one synchronizable eHealth record category.
type EntityType string

const (
	EntityDivision          EntityType = "division"
	EntityEmployee          EntityType = "employee"
	EntityEquipment         EntityType = "equipment"
	EntityHealthcareService EntityType = "healthcare_service"
	EntityLicense           EntityType = "license"
	EntityContract          EntityType = "contract"

	// EntityCompleteSync is the terminal marker of a first-login chain.
	// It fetches nothing; handling it flips the overall legal-entity
	// status to completed.
	EntityCompleteSync EntityType = "complete_sync"

	// EntityOverall keys the per-legal-entity overall status row.
	EntityOverall EntityType = "legal_entity"
)
