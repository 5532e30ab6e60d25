package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

func TestFirstLoginChainOrder(t *testing.T) {
	chain := FirstLoginChain()
	assert.Equal(t, []models.EntityType{
		models.EntityDivision,
		models.EntityEmployee,
		models.EntityEquipment,
		models.EntityHealthcareService,
		models.EntityLicense,
		models.EntityContract,
		models.EntityCompleteSync,
	}, chain)
}

func TestDescriptorFor_EveryChainMemberResolves(t *testing.T) {
	for _, entityType := range FirstLoginChain() {
		desc, ok := DescriptorFor(entityType)
		require.True(t, ok, string(entityType))
		assert.NotEmpty(t, desc.BatchName)
		if entityType != models.EntityCompleteSync {
			assert.NotEmpty(t, desc.Resource)
			assert.NotEmpty(t, desc.Scope)
			assert.NotNil(t, desc.Persist)
		}
	}
}

func TestDescriptorFor_UnknownType(t *testing.T) {
	_, ok := DescriptorFor(models.EntityType("ambulance"))
	assert.False(t, ok)
}

func TestPersistEmployees_MapsPartyAndDates(t *testing.T) {
	store := newFakeRegistryStore()
	desc, _ := DescriptorFor(models.EntityEmployee)

	raw := []json.RawMessage{[]byte(`{
		"id": "emp-1",
		"division_id": "div-1",
		"position": "P2",
		"employee_type": "DOCTOR",
		"status": "APPROVED",
		"start_date": "2024-03-01",
		"party": {"first_name": "Olena", "last_name": "Shevchenko"},
		"is_active": true
	}`)}

	require.NoError(t, desc.Persist(context.Background(), store, "le-1", raw))
	assert.Equal(t, 1, store.count(models.EntityEmployee))
}

func TestPersistDivisions_RejectsMalformedRecord(t *testing.T) {
	store := newFakeRegistryStore()
	desc, _ := DescriptorFor(models.EntityDivision)

	err := desc.Persist(context.Background(), store, "le-1", []json.RawMessage{[]byte(`{"id": 42`)})
	assert.Error(t, err)
	assert.Zero(t, store.count(models.EntityDivision))
}

func TestParseDate(t *testing.T) {
	date := "2024-03-01"
	got := parseDate(&date)
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())

	stamp := "2024-03-01T10:30:00Z"
	got = parseDate(&stamp)
	require.NotNil(t, got)

	assert.Nil(t, parseDate(nil))
	empty := ""
	assert.Nil(t, parseDate(&empty))
	garbage := "March 1st"
	assert.Nil(t, parseDate(&garbage))
}
