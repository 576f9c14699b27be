package usecase

import (
	"regexp"
	"strings"

	"access-reconcile-service/internal/domain/entity"
)

const transactionsExtract = "transactions"

var apartmentRefRe = regexp.MustCompile(`(?i)(?:ბინა|apt|apartment)\s*(\d+)`)

// TransactionColumns names the transaction history columns
type TransactionColumns struct {
	Description string
	Partner     string
}

// BuildPartnerMap finds apartment references in transaction descriptions
// and maps each apartment to the partner that paid. Later rows overwrite
// earlier ones.
func BuildPartnerMap(table *entity.Table, cols TransactionColumns) (entity.PaymentPartnerMap, error) {
	idx, err := columnIndexes(table, transactionsExtract, cols.Description, cols.Partner)
	if err != nil {
		return nil, err
	}
	descCol, partnerCol := idx[0], idx[1]

	partners := make(entity.PaymentPartnerMap)
	for _, row := range table.Rows {
		partner := strings.TrimSpace(cell(row, partnerCol))
		if partner == "" {
			continue
		}
		m := apartmentRefRe.FindStringSubmatch(cell(row, descCol))
		if m == nil {
			continue
		}
		partners[NumericKey(m[1])] = partner
	}
	return partners, nil
}
