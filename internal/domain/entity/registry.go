// internal/domain/entity/registry.go
package entity

import (
	"bytes"
	"encoding/json"
)

// PersonRegistry groups grants by holder. Holders keep first-seen order and
// each holder's grants keep arrival order.
type PersonRegistry struct {
	order  []PersonID
	grants map[PersonID][]Grant
}

// NewPersonRegistry creates an empty registry
func NewPersonRegistry() *PersonRegistry {
	return &PersonRegistry{grants: make(map[PersonID][]Grant)}
}

// Add appends a grant to the holder's group
func (r *PersonRegistry) Add(person PersonID, grant Grant) {
	if _, ok := r.grants[person]; !ok {
		r.order = append(r.order, person)
	}
	r.grants[person] = append(r.grants[person], grant)
}

// People returns holders in first-seen order
func (r *PersonRegistry) People() []PersonID {
	out := make([]PersonID, len(r.order))
	copy(out, r.order)
	return out
}

// Grants returns the grants of one holder
func (r *PersonRegistry) Grants(person PersonID) []Grant {
	return r.grants[person]
}

// Len returns the number of holders
func (r *PersonRegistry) Len() int {
	return len(r.order)
}

// Count returns the number of grants across all holders
func (r *PersonRegistry) Count() int {
	n := 0
	for _, g := range r.grants {
		n += len(g)
	}
	return n
}

// MarshalJSON writes the registry as an object keyed by holder, in
// first-seen order
func (r *PersonRegistry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, person := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(person))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.grants[person])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Registry is the outcome of grouping one sync run's grants
type Registry struct {
	Keys    *PersonRegistry `json:"ekeys"`
	Cards   *PersonRegistry `json:"cards"`
	Entries []AccessEntry   `json:"-"`

	Failures    []LockFailure `json:"-"`
	Diagnostics []Diagnostic  `json:"-"`
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		Keys:  NewPersonRegistry(),
		Cards: NewPersonRegistry(),
	}
}

// ByKind returns the person registry for a grant kind
func (r *Registry) ByKind(kind GrantKind) *PersonRegistry {
	if kind == PhysicalCardGrant {
		return r.Cards
	}
	return r.Keys
}
