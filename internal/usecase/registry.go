package usecase

import (
	"strings"

	"access-reconcile-service/internal/domain/entity"
)

// BuildRegistry merges per-stream results into one registry. Results are
// consumed in the order given, which callers keep as (lock order, kind
// order) so the output does not depend on fetch timing.
func BuildRegistry(results []StreamResult, n *Normalizer) *entity.Registry {
	reg := entity.NewRegistry()

	for _, res := range results {
		stream := res.Stream
		for _, raw := range res.Items {
			grant := toGrant(stream, raw)
			label := rawLabel(stream.Kind, raw)
			person := entity.UnknownPerson
			if label != "" {
				person = entity.PersonID(label)
			}

			reg.ByKind(stream.Kind).Add(person, grant)

			key, diag := n.NormalizeWithDiagnostic(label)
			if diag != nil {
				diag.LockID = stream.Lock.ID
				diag.LockName = stream.Lock.Name
				diag.Kind = stream.Kind
				reg.Diagnostics = append(reg.Diagnostics, *diag)
			}

			reg.Entries = append(reg.Entries, entity.AccessEntry{
				ApartmentKey: key,
				RawLabel:     label,
				Person:       person,
				Grant:        grant,
			})
		}

		if res.Failure != nil {
			failure := entity.LockFailure{
				LockID:   stream.Lock.ID,
				LockName: stream.Lock.Name,
				Kind:     stream.Kind,
				Page:     res.Failure.Page,
				Reason:   res.Failure.Err.Error(),
			}
			reg.Failures = append(reg.Failures, failure)
			reg.Diagnostics = append(reg.Diagnostics, entity.Diagnostic{
				Stage:    entity.StageFetch,
				LockID:   failure.LockID,
				LockName: failure.LockName,
				Kind:     failure.Kind,
				Page:     failure.Page,
				Reason:   failure.Reason,
			})
		}
	}

	return reg
}

// rawLabel picks the holder label of a grant: its own name, else the
// account it was sent to
func rawLabel(kind entity.GrantKind, raw entity.RawGrant) string {
	name := raw.KeyName
	if kind == entity.PhysicalCardGrant {
		name = raw.CardName
	}
	if s := strings.TrimSpace(name); s != "" {
		return s
	}
	return strings.TrimSpace(raw.Username)
}

func toGrant(stream entity.Stream, raw entity.RawGrant) entity.Grant {
	g := entity.Grant{
		Kind:     stream.Kind,
		LockID:   stream.Lock.ID,
		LockName: stream.Lock.Name,
		Username: raw.Username,
	}
	switch stream.Kind {
	case entity.PhysicalCardGrant:
		g.Card = &entity.PhysicalCard{
			CardID:     raw.CardID,
			CardNumber: raw.CardNumber,
			ValidFrom:  entity.MillisToTime(raw.StartDate),
			ValidTo:    entity.MillisToTime(raw.EndDate),
			CreatedAt:  entity.MillisToTime(raw.CreateDate),
		}
	default:
		g.Key = &entity.ElectronicKey{
			KeyID:  raw.KeyID,
			Status: raw.KeyStatus,
		}
	}
	return g
}

// LockAccess maps each holder to the lock names they can open, in
// first-seen order without repeats
func LockAccess(reg *entity.Registry) map[entity.PersonID][]string {
	out := make(map[entity.PersonID][]string)
	seen := make(map[entity.PersonID]map[string]bool)
	for _, entry := range reg.Entries {
		p := entry.Person
		if seen[p] == nil {
			seen[p] = make(map[string]bool)
		}
		if seen[p][entry.Grant.LockName] {
			continue
		}
		seen[p][entry.Grant.LockName] = true
		out[p] = append(out[p], entry.Grant.LockName)
	}
	return out
}
