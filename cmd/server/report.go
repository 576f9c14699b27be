package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/usecase"

	"github.com/olekukonko/tablewriter"
)

// renderSummary prints the run counters as a two-column table
func renderSummary(w io.Writer, report *entity.RunReport) error {
	rows := [][]string{
		{"Run", report.RunID},
		{"Duration", report.Duration().Round(1e6).String()},
		{"Locks", strconv.Itoa(report.Locks)},
		{"Electronic keys", strconv.Itoa(report.Fetched[entity.ElectronicKeyGrant])},
		{"IC cards", strconv.Itoa(report.Fetched[entity.PhysicalCardGrant])},
		{"Failed streams", strconv.Itoa(len(report.LockFailures))},
		{"Owners loaded", strconv.Itoa(report.OwnersLoaded)},
		{"Owners dropped", strconv.Itoa(report.OwnersDropped)},
		{"Partners mapped", strconv.Itoa(report.PartnersMapped)},
		{"Reconciled", strconv.Itoa(report.Reconciled)},
		{"Owner matched", strconv.Itoa(report.OwnerMatched)},
		{"Owner unmatched", strconv.Itoa(report.OwnerUnmatched)},
		{"Partner matched", strconv.Itoa(report.PartnerMatched)},
		{"Labels unmatched", strconv.Itoa(report.LabelsUnmatched)},
		{"Labels missing", strconv.Itoa(report.LabelsUnknown)},
		{"Key collisions", strconv.Itoa(len(report.Collisions))},
		{"Sinks", strings.Join(report.Sinks, ", ")},
	}

	table := tablewriter.NewTable(w)
	table.Header("Metric", "Value")
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(report.LockFailures) == 0 {
		return nil
	}

	failures := tablewriter.NewTable(w)
	failures.Header("Lock", "Kind", "Page", "Reason")
	for _, f := range report.LockFailures {
		lock := fmt.Sprintf("%s (%d)", f.LockName, f.LockID)
		if err := failures.Append(lock, string(f.Kind), strconv.Itoa(f.Page), f.Reason); err != nil {
			return err
		}
	}
	return failures.Render()
}

// renderAccess prints every holder with the locks they can open
func renderAccess(w io.Writer, registry *entity.Registry) error {
	access := usecase.LockAccess(registry)

	table := tablewriter.NewTable(w)
	table.Header("Holder", "Locks")
	seen := make(map[entity.PersonID]bool)
	for _, people := range [][]entity.PersonID{registry.Keys.People(), registry.Cards.People()} {
		for _, p := range people {
			if seen[p] {
				continue
			}
			seen[p] = true
			if err := table.Append(string(p), strings.Join(access[p], ", ")); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

// renderLocks prints discovered locks
func renderLocks(w io.Writer, locks []entity.Lock) error {
	table := tablewriter.NewTable(w)
	table.Header("Lock ID", "Name")
	for _, l := range locks {
		if err := table.Append(strconv.FormatInt(l.ID, 10), l.Name); err != nil {
			return err
		}
	}
	return table.Render()
}
