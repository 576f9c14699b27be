package extract

import (
	"fmt"
	"strings"

	"access-reconcile-service/internal/domain/entity"
)

// buildTable skips the leading rows, takes the next row as header and pads
// short rows to the header width. Rows with no content are left out.
func buildTable(name string, records [][]string, skipRows int) (*entity.Table, error) {
	if skipRows < 0 {
		skipRows = 0
	}
	if len(records) <= skipRows {
		return nil, fmt.Errorf("%s extract has no header row after skipping %d rows: %w", name, skipRows, entity.ErrSourceShape)
	}

	header := make([]string, len(records[skipRows]))
	for i, h := range records[skipRows] {
		header[i] = strings.TrimSpace(h)
	}

	table := &entity.Table{Name: name, Header: header}
	for _, rec := range records[skipRows+1:] {
		if blank(rec) {
			continue
		}
		row := make([]string, max(len(header), len(rec)))
		copy(row, rec)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
