package usecase

import (
	"access-reconcile-service/internal/domain/entity"
)

// ReconcileStats counts the outcome of a reconciliation
type ReconcileStats struct {
	Total          int
	OwnerMatched   int
	OwnerUnmatched int
	PartnerMatched int
	Conflicts      int
}

// ReconcileResult is one reconciled record per access entry, in entry order
type ReconcileResult struct {
	Records    []entity.ReconciledRecord
	Collisions []entity.KeyCollision
	Stats      ReconcileStats
}

// AttachPartners sets each owner's payment partner from the transaction map
func AttachPartners(owners []entity.OwnerRecord, partners entity.PaymentPartnerMap) {
	for i := range owners {
		owners[i].PaymentPartner = partners.Lookup(owners[i].ApartmentKey)
	}
}

// Reconcile left-joins access entries with owner rows and payment partners
// on apartment key. Every entry yields exactly one record. A key held by
// several owner rows is reported as a collision and joins no owner.
func Reconcile(entries []entity.AccessEntry, owners []entity.OwnerRecord, partners entity.PaymentPartnerMap) *ReconcileResult {
	lookup, collisions := indexOwners(owners)

	result := &ReconcileResult{
		Records:    make([]entity.ReconciledRecord, 0, len(entries)),
		Collisions: collisions,
	}

	conflicted := make(map[entity.ApartmentKey]bool, len(collisions))
	for _, c := range collisions {
		conflicted[c.ApartmentKey] = true
	}

	for _, entry := range entries {
		rec := entity.ReconciledRecord{Entry: entry}

		if entry.ApartmentKey.IsResolved() {
			if conflicted[entry.ApartmentKey] {
				rec.OwnerConflict = true
				result.Stats.Conflicts++
			} else if owner, ok := lookup[entry.ApartmentKey]; ok {
				o := owner
				rec.Owner = &o
			}
			rec.PaymentPartner = partners.Lookup(entry.ApartmentKey)
		}

		if rec.Owner != nil {
			result.Stats.OwnerMatched++
		} else {
			result.Stats.OwnerUnmatched++
		}
		if rec.PaymentPartner != nil {
			result.Stats.PartnerMatched++
		}

		result.Records = append(result.Records, rec)
	}
	result.Stats.Total = len(result.Records)

	return result
}

// indexOwners builds the key lookup. Unresolved keys are left out; keys
// claimed by more than one row are returned as collisions in first-seen
// order.
func indexOwners(owners []entity.OwnerRecord) (map[entity.ApartmentKey]entity.OwnerRecord, []entity.KeyCollision) {
	byKey := make(map[entity.ApartmentKey][]entity.OwnerRecord)
	var order []entity.ApartmentKey
	for _, o := range owners {
		if !o.ApartmentKey.IsResolved() {
			continue
		}
		if _, ok := byKey[o.ApartmentKey]; !ok {
			order = append(order, o.ApartmentKey)
		}
		byKey[o.ApartmentKey] = append(byKey[o.ApartmentKey], o)
	}

	lookup := make(map[entity.ApartmentKey]entity.OwnerRecord, len(byKey))
	var collisions []entity.KeyCollision
	for _, key := range order {
		rows := byKey[key]
		if len(rows) == 1 {
			lookup[key] = rows[0]
			continue
		}
		c := entity.KeyCollision{ApartmentKey: key}
		for _, r := range rows {
			c.Owners = append(c.Owners, r.OwnerName)
			c.Rows = append(c.Rows, r.SourceRow)
		}
		collisions = append(collisions, c)
	}
	return lookup, collisions
}
