package main

import (
	"bytes"
	"testing"
	"time"

	"access-reconcile-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSummary(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	report := &entity.RunReport{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Locks:      8,
		Fetched:    map[entity.GrantKind]int{entity.ElectronicKeyGrant: 120, entity.PhysicalCardGrant: 40},
		Reconciled: 160,
		Sinks:      []string{"postgres"},
	}

	var buf bytes.Buffer
	require.NoError(t, renderSummary(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "postgres")
	assert.NotContains(t, out, "26382284", "no failure table without failures")

	report.LockFailures = []entity.LockFailure{
		{LockID: 26382284, LockName: "Parking 1", Kind: entity.PhysicalCardGrant, Page: 2, Reason: "timeout"},
	}
	buf.Reset()
	require.NoError(t, renderSummary(&buf, report))
	assert.Contains(t, buf.String(), "26382284")
	assert.Contains(t, buf.String(), "timeout")
}

func TestRenderAccess(t *testing.T) {
	reg := entity.NewRegistry()
	grants := []struct {
		person entity.PersonID
		grant  entity.Grant
	}{
		{"5", entity.Grant{Kind: entity.ElectronicKeyGrant, LockID: 1, LockName: "I Hall Door"}},
		{"5", entity.Grant{Kind: entity.PhysicalCardGrant, LockID: 2, LockName: "Parking 1"}},
		{"Unknown", entity.Grant{Kind: entity.PhysicalCardGrant, LockID: 3, LockName: "Terrace"}},
	}
	for _, g := range grants {
		reg.ByKind(g.grant.Kind).Add(g.person, g.grant)
		reg.Entries = append(reg.Entries, entity.AccessEntry{Person: g.person, RawLabel: string(g.person), Grant: g.grant})
	}

	var buf bytes.Buffer
	require.NoError(t, renderAccess(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, "I Hall Door")
	assert.Contains(t, out, "Parking 1")
	assert.Contains(t, out, "Terrace")
	assert.Contains(t, out, "Unknown")
}

func TestRenderLocks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderLocks(&buf, []entity.Lock{{ID: 26294486, Name: "I Hall Door"}}))
	assert.Contains(t, buf.String(), "26294486")
	assert.Contains(t, buf.String(), "I Hall Door")
}
