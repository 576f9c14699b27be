package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/pkg/logger"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVSource reads a CSV export from disk. UTF-8 and UTF-16 files with a byte
// order mark are both accepted.
type CSVSource struct {
	name     string
	path     string
	skipRows int
	logger   logger.Logger
}

// NewCSVSource creates a new CSV table source
func NewCSVSource(name, path string, skipRows int, logger logger.Logger) *CSVSource {
	return &CSVSource{
		name:     name,
		path:     path,
		skipRows: skipRows,
		logger:   logger,
	}
}

// Load reads the whole file
func (s *CSVSource) Load(ctx context.Context) (*entity.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s extract: %w", s.name, err)
	}
	defer f.Close()

	table, err := ReadCSV(s.name, f, s.skipRows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded extract",
		"extract", s.name,
		"path", s.path,
		"columns", len(table.Header),
		"rows", len(table.Rows))

	return table, nil
}

// ReadCSV decodes a CSV stream into a table
func ReadCSV(name string, r io.Reader, skipRows int) (*entity.Table, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(r, decoder))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s extract: %w", name, err)
	}

	return buildTable(name, records, skipRows)
}
