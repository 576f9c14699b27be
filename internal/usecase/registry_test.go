package usecase

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"access-reconcile-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hallDoor = entity.Lock{ID: 1, Name: "I Hall Door"}
	parking  = entity.Lock{ID: 2, Name: "Parking 1"}
	terrace  = entity.Lock{ID: 3, Name: "Terrace"}
)

func TestBuildRegistry_GroupsByPerson(t *testing.T) {
	results := []StreamResult{
		{
			Stream: entity.Stream{Lock: hallDoor, Kind: entity.ElectronicKeyGrant},
			Items: []entity.RawGrant{
				{KeyName: "02 HL", Username: "nino", KeyID: 10, KeyStatus: "110401"},
				{Username: "giorgi_b", KeyID: 11},
				{KeyID: 12},
			},
		},
		{
			Stream: entity.Stream{Lock: hallDoor, Kind: entity.PhysicalCardGrant},
			Items: []entity.RawGrant{
				{CardName: "5", CardNumber: "123456", CardID: 20, StartDate: 1700000000000},
				{CardNumber: "999", CardID: 21},
			},
		},
		{
			Stream: entity.Stream{Lock: parking, Kind: entity.ElectronicKeyGrant},
			Items: []entity.RawGrant{
				{KeyName: "02 HL", KeyID: 30},
			},
		},
	}

	reg := BuildRegistry(results, newTestNormalizer())

	assert.Equal(t, []entity.PersonID{"02 HL", "giorgi_b", entity.UnknownPerson}, reg.Keys.People())
	require.Len(t, reg.Keys.Grants("02 HL"), 2)
	assert.Equal(t, "I Hall Door", reg.Keys.Grants("02 HL")[0].LockName)
	assert.Equal(t, "Parking 1", reg.Keys.Grants("02 HL")[1].LockName)
	assert.Equal(t, "110401", reg.Keys.Grants("02 HL")[0].Key.Status)

	assert.Equal(t, []entity.PersonID{"5", entity.UnknownPerson}, reg.Cards.People())
	card := reg.Cards.Grants("5")[0].Card
	require.NotNil(t, card)
	assert.Equal(t, "123456", card.CardNumber)
	require.NotNil(t, card.ValidFrom)
	assert.True(t, card.ValidFrom.Equal(time.UnixMilli(1700000000000)))
	assert.Nil(t, card.ValidTo)

	require.Len(t, reg.Entries, 6)
	assert.Equal(t, entity.ApartmentKey("HL"), reg.Entries[0].ApartmentKey)
	assert.Equal(t, "02 HL", reg.Entries[0].RawLabel)
	assert.Equal(t, entity.UnmatchedApartment, reg.Entries[1].ApartmentKey)
	assert.Equal(t, entity.UnknownApartment, reg.Entries[2].ApartmentKey)
	assert.Equal(t, "", reg.Entries[2].RawLabel)
	assert.Equal(t, entity.ApartmentKey("5"), reg.Entries[3].ApartmentKey)

	require.Len(t, reg.Diagnostics, 1, "only the unparseable label is reported")
	assert.Equal(t, "giorgi_b", reg.Diagnostics[0].Label)
	assert.Equal(t, int64(1), reg.Diagnostics[0].LockID)
	assert.Empty(t, reg.Failures)
}

func TestBuildRegistry_FailureIsolation(t *testing.T) {
	failure := &PageError{
		Stream: entity.Stream{Lock: parking, Kind: entity.ElectronicKeyGrant},
		Page:   2,
		Err:    errors.New("lock API /v3/lock/listKey timed out"),
	}
	results := []StreamResult{
		{
			Stream: entity.Stream{Lock: hallDoor, Kind: entity.ElectronicKeyGrant},
			Items:  []entity.RawGrant{{KeyName: "1"}},
		},
		{
			Stream:  entity.Stream{Lock: parking, Kind: entity.ElectronicKeyGrant},
			Items:   []entity.RawGrant{{KeyName: "2"}},
			Failure: failure,
		},
		{
			Stream: entity.Stream{Lock: terrace, Kind: entity.ElectronicKeyGrant},
			Items:  []entity.RawGrant{{KeyName: "3"}},
		},
	}

	reg := BuildRegistry(results, newTestNormalizer())

	assert.Equal(t, []entity.PersonID{"1", "2", "3"}, reg.Keys.People(), "grants fetched before and after the failure are kept")
	require.Len(t, reg.Failures, 1)
	assert.Equal(t, int64(2), reg.Failures[0].LockID)
	assert.Equal(t, "Parking 1", reg.Failures[0].LockName)
	assert.Equal(t, 2, reg.Failures[0].Page)
	require.Len(t, reg.Diagnostics, 1)
	assert.Equal(t, entity.StageFetch, reg.Diagnostics[0].Stage)
}

func TestBuildRegistry_SnapshotShape(t *testing.T) {
	results := []StreamResult{
		{
			Stream: entity.Stream{Lock: hallDoor, Kind: entity.ElectronicKeyGrant},
			Items:  []entity.RawGrant{{KeyName: "b"}, {KeyName: "a"}},
		},
	}
	reg := BuildRegistry(results, newTestNormalizer())

	data, err := json.Marshal(reg)
	require.NoError(t, err)

	var decoded map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "ekeys")
	assert.Contains(t, decoded, "cards")
	assert.Len(t, decoded["ekeys"]["a"], 1)
	assert.Empty(t, decoded["cards"])

	assert.Less(t, strings.Index(string(data), `"b"`), strings.Index(string(data), `"a"`), "holders keep first-seen order")
}

func TestLockAccess(t *testing.T) {
	results := []StreamResult{
		{
			Stream: entity.Stream{Lock: hallDoor, Kind: entity.ElectronicKeyGrant},
			Items:  []entity.RawGrant{{KeyName: "5"}},
		},
		{
			Stream: entity.Stream{Lock: hallDoor, Kind: entity.PhysicalCardGrant},
			Items:  []entity.RawGrant{{CardName: "5"}},
		},
		{
			Stream: entity.Stream{Lock: terrace, Kind: entity.ElectronicKeyGrant},
			Items:  []entity.RawGrant{{KeyName: "5"}},
		},
	}
	access := LockAccess(BuildRegistry(results, newTestNormalizer()))
	assert.Equal(t, []string{"I Hall Door", "Terrace"}, access["5"])
}
