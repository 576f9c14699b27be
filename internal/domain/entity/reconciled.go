// internal/domain/entity/reconciled.go
package entity

// ReconciledRecord is an access entry left-joined with its owner row and
// payment partner. Owner and PaymentPartner are nil when nothing matched.
type ReconciledRecord struct {
	Entry          AccessEntry
	Owner          *OwnerRecord
	PaymentPartner *string
	// OwnerConflict is set when several owner rows share the entry's key;
	// Owner stays nil in that case
	OwnerConflict bool
}

// KeyCollision reports owner rows sharing one apartment key
type KeyCollision struct {
	ApartmentKey ApartmentKey `json:"apartmentKey"`
	Owners       []string     `json:"owners"`
	Rows         []int        `json:"rows"`
}
