package ehealth

// Wire shapes of the synchronized eHealth resources. Only the fields the
// registry keeps are decoded; the remote envelope carries more.

type DivisionResult struct {
	ID            string  `json:"id"`
	LegalEntityID string  `json:"legal_entity_id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	IsActive      bool    `json:"is_active"`
}

type EmployeeResult struct {
	ID            string  `json:"id"`
	LegalEntityID string  `json:"legal_entity_id"`
	DivisionID    *string `json:"division_id"`
	Position      string  `json:"position"`
	EmployeeType  string  `json:"employee_type"`
	Status        string  `json:"status"`
	IsActive      bool    `json:"is_active"`
	StartDate     *string `json:"start_date"` // RFC 3339 date
	EndDate       *string `json:"end_date"`
	Party         struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		SecondName string `json:"second_name"`
	} `json:"party"`
}

type EquipmentResult struct {
	ID            string  `json:"id"`
	LegalEntityID string  `json:"legal_entity_id"`
	DivisionID    *string `json:"division_id"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	SerialNumber  *string `json:"serial_number"`
	Manufacturer  *string `json:"manufacturer"`
	IsActive      bool    `json:"is_active"`
}

type HealthcareServiceResult struct {
	ID             string  `json:"id"`
	LegalEntityID  string  `json:"legal_entity_id"`
	DivisionID     *string `json:"division_id"`
	Category       string  `json:"category"`
	SpecialityType *string `json:"speciality_type"`
	Status         string  `json:"status"`
	IsActive       bool    `json:"is_active"`
}

type LicenseResult struct {
	ID             string  `json:"id"`
	LegalEntityID  string  `json:"legal_entity_id"`
	Type           string  `json:"type"`
	IssuedBy       string  `json:"issued_by"`
	IssuedDate     *string `json:"issued_date"`
	ExpiryDate     *string `json:"expiry_date"`
	ActiveFromDate *string `json:"active_from_date"`
	WhatLicensed   *string `json:"what_licensed"`
	IsActive       bool    `json:"is_active"`
}

type ContractResult struct {
	ID                      string  `json:"id"`
	ContractorLegalEntityID string  `json:"contractor_legal_entity_id"`
	ContractNumber          string  `json:"contract_number"`
	Status                  string  `json:"status"`
	StartDate               *string `json:"start_date"`
	EndDate                 *string `json:"end_date"`
	ContractorBase          *string `json:"contractor_base"`
	IsSuspended             bool    `json:"is_suspended"`
}
