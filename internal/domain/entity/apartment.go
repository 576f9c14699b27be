// internal/domain/entity/apartment.go
package entity

// ApartmentKey is the canonical identity of a residential or commercial unit.
// It is always derived from a label, never taken verbatim from user input.
type ApartmentKey string

// Sentinel apartment keys
const (
	// UnknownApartment is the key of a record that carried no label at all
	UnknownApartment ApartmentKey = "Unknown"
	// UnmatchedApartment is the key of a label that matched no known pattern
	UnmatchedApartment ApartmentKey = "unmatched"
)

// IsResolved reports whether the key identifies a real unit
func (k ApartmentKey) IsResolved() bool {
	return k != "" && k != UnknownApartment && k != UnmatchedApartment
}

func (k ApartmentKey) String() string {
	return string(k)
}
