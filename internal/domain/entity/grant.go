// internal/domain/entity/grant.go
package entity

import (
	"time"
)

// GrantKind discriminates the two kinds of access grant
type GrantKind string

const (
	ElectronicKeyGrant GrantKind = "ekey"
	PhysicalCardGrant  GrantKind = "card"
)

// GrantKinds lists every kind in fetch order
var GrantKinds = []GrantKind{ElectronicKeyGrant, PhysicalCardGrant}

// PersonID identifies the holder of a grant: a key/card name, else an
// account identifier, else UnknownPerson.
type PersonID string

// UnknownPerson is used when a grant carries neither a name nor an account
const UnknownPerson PersonID = "Unknown"

// Lock is one lock registered with the lock-management provider
type Lock struct {
	ID   int64  `json:"lockId" bson:"lockId"`
	Name string `json:"name" bson:"name"`
}

// Stream is one (lock, grant kind) pagination stream
type Stream struct {
	Lock Lock
	Kind GrantKind
}

// RawGrant is one item of a lock API page. Electronic keys fill the key
// fields, IC cards the card fields; lock and date fields are shared.
type RawGrant struct {
	KeyName    string `json:"keyName,omitempty"`
	Username   string `json:"username,omitempty"`
	KeyID      int64  `json:"keyId,omitempty"`
	KeyStatus  string `json:"keyStatus,omitempty"`
	CardName   string `json:"cardName,omitempty"`
	CardNumber string `json:"cardNumber,omitempty"`
	CardID     int64  `json:"cardId,omitempty"`
	LockID     int64  `json:"lockId,omitempty"`
	StartDate  int64  `json:"startDate,omitempty"`
	EndDate    int64  `json:"endDate,omitempty"`
	CreateDate int64  `json:"createDate,omitempty"`
}

// Page is one decoded page of a lock API list endpoint
type Page struct {
	Number int
	Items  []RawGrant
}

// ElectronicKey holds the fields specific to an app key
type ElectronicKey struct {
	KeyID  int64  `json:"keyId"`
	Status string `json:"status"`
}

// PhysicalCard holds the fields specific to an IC card
type PhysicalCard struct {
	CardID     int64      `json:"cardId"`
	CardNumber string     `json:"cardNumber"`
	ValidFrom  *time.Time `json:"startDate,omitempty"`
	ValidTo    *time.Time `json:"endDate,omitempty"`
	CreatedAt  *time.Time `json:"createDate,omitempty"`
}

// Grant is one access grant on one lock. Exactly one of Key and Card is set,
// matching Kind.
type Grant struct {
	Kind     GrantKind      `json:"type"`
	LockID   int64          `json:"lockId"`
	LockName string         `json:"lockName"`
	Username string         `json:"username,omitempty"`
	Key      *ElectronicKey `json:"key,omitempty"`
	Card     *PhysicalCard  `json:"card,omitempty"`
}

// AccessEntry is a grant tied to its holder and to the apartment its label
// normalizes to
type AccessEntry struct {
	ApartmentKey ApartmentKey
	RawLabel     string
	Person       PersonID
	Grant        Grant
}

// MillisToTime converts a provider millisecond timestamp; zero means unset
func MillisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
