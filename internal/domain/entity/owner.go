// internal/domain/entity/owner.go
package entity

import (
	"github.com/shopspring/decimal"
)

// OwnerRecord is one row of the owner/financial register
type OwnerRecord struct {
	ApartmentKey   ApartmentKey
	UnitLabel      string
	OwnerName      string
	MonthlyFee     decimal.NullDecimal
	Debt           decimal.NullDecimal
	PaymentPartner *string
	SourceRow      int
}

// PaymentPartnerMap maps an apartment to the payer name of its most recent
// matching transaction (source order, last write wins)
type PaymentPartnerMap map[ApartmentKey]string

// Lookup returns the partner for a key, or nil
func (m PaymentPartnerMap) Lookup(key ApartmentKey) *string {
	if name, ok := m[key]; ok {
		return &name
	}
	return nil
}

// Table is a tabular extract after leading rows were skipped: the first row
// read is the header
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of a header, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}
