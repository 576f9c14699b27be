package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"access-reconcile-service/internal/domain/entity"

	"github.com/shopspring/decimal"
)

const ownersExtract = "owners"

// OwnerColumns names the owner register columns
type OwnerColumns struct {
	Owner string
	Unit  string
	Fee   string
	Debt  string
}

// OwnerLoadResult holds the owner rows that resolved to an apartment and
// what was dropped on the way
type OwnerLoadResult struct {
	Owners      []entity.OwnerRecord
	Dropped     int
	Diagnostics []entity.Diagnostic
}

var amountReplacer = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"₾", "",
	"GEL", "",
	"gel", "",
)

var (
	thousandsCommaRe = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
	decimalCommaRe   = regexp.MustCompile(`^-?\d+,\d{1,2}$`)
)

// LoadOwners reads the owner register. A missing column fails the whole
// load; a row whose unit does not resolve is dropped with a diagnostic.
func LoadOwners(table *entity.Table, cols OwnerColumns, n *Normalizer) (*OwnerLoadResult, error) {
	idx, err := columnIndexes(table, ownersExtract, cols.Owner, cols.Unit, cols.Fee, cols.Debt)
	if err != nil {
		return nil, err
	}
	ownerCol, unitCol, feeCol, debtCol := idx[0], idx[1], idx[2], idx[3]

	result := &OwnerLoadResult{}
	for i, row := range table.Rows {
		rowNo := i + 1
		unit := CleanUnitLabel(cell(row, unitCol))
		if unit == "" {
			result.Dropped++
			result.Diagnostics = append(result.Diagnostics, entity.Diagnostic{
				Stage:  entity.StageOwners,
				Row:    rowNo,
				Reason: "blank unit",
			})
			continue
		}

		key, _ := n.NormalizeWithDiagnostic(unit)
		if !key.IsResolved() {
			result.Dropped++
			result.Diagnostics = append(result.Diagnostics, entity.Diagnostic{
				Stage:  entity.StageOwners,
				Row:    rowNo,
				Label:  unit,
				Reason: "unit label matched no unit keyword or number pattern",
			})
			continue
		}

		record := entity.OwnerRecord{
			ApartmentKey: key,
			UnitLabel:    unit,
			OwnerName:    strings.TrimSpace(cell(row, ownerCol)),
			SourceRow:    rowNo,
		}

		if record.MonthlyFee, err = ParseAmount(cell(row, feeCol)); err != nil {
			result.Diagnostics = append(result.Diagnostics, amountDiagnostic(rowNo, unit, cols.Fee, err))
		}
		if record.Debt, err = ParseAmount(cell(row, debtCol)); err != nil {
			result.Diagnostics = append(result.Diagnostics, amountDiagnostic(rowNo, unit, cols.Debt, err))
		}

		result.Owners = append(result.Owners, record)
	}

	return result, nil
}

// ParseAmount parses a money cell. Blank cells are null. Spaces and lari
// markers are ignored. A comma is a thousands separator only before groups
// of three digits ("1,200.50"); "25,50" uses a decimal comma. Any other
// comma is rejected.
func ParseAmount(raw string) (decimal.NullDecimal, error) {
	s := amountReplacer.Replace(strings.TrimSpace(raw))
	if s == "" || s == "-" {
		return decimal.NullDecimal{}, nil
	}
	if strings.Contains(s, ",") {
		switch {
		case thousandsCommaRe.MatchString(s):
			s = strings.ReplaceAll(s, ",", "")
		case decimalCommaRe.MatchString(s):
			s = strings.Replace(s, ",", ".", 1)
		default:
			return decimal.NullDecimal{}, fmt.Errorf("ambiguous amount %q", raw)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func amountDiagnostic(row int, unit, column string, err error) entity.Diagnostic {
	return entity.Diagnostic{
		Stage:  entity.StageOwners,
		Row:    row,
		Label:  unit,
		Reason: fmt.Sprintf("%s: %v", column, err),
	}
}

// columnIndexes resolves required headers or reports the first missing one
func columnIndexes(table *entity.Table, extract string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			return nil, &entity.MissingColumnError{Extract: extract, Column: name}
		}
		out[i] = idx
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
