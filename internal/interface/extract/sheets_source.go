package extract

import (
	"context"
	"fmt"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads a range of a Google spreadsheet
type SheetsSource struct {
	service       *sheets.Service
	name          string
	spreadsheetID string
	readRange     string
	skipRows      int
	logger        logger.Logger
}

// NewSheetsSource creates a new Google Sheets table source. tokenSource may
// be nil when opts carry their own credentials.
func NewSheetsSource(
	ctx context.Context,
	name, spreadsheetID, readRange string,
	skipRows int,
	tokenSource oauth2.TokenSource,
	logger logger.Logger,
	opts ...option.ClientOption,
) (*SheetsSource, error) {
	if tokenSource != nil {
		opts = append(opts, option.WithTokenSource(tokenSource))
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsSource{
		service:       service,
		name:          name,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		skipRows:      skipRows,
		logger:        logger,
	}, nil
}

// Load reads the configured range
func (s *SheetsSource) Load(ctx context.Context) (*entity.Table, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		s.logger.Error("Failed to read spreadsheet range",
			"extract", s.name,
			"range", s.readRange,
			"error", err)
		return nil, fmt.Errorf("failed to read %s range %s: %w", s.name, s.readRange, err)
	}

	records := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		records[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				records[i][j] = fmt.Sprint(v)
			}
		}
	}

	table, err := buildTable(s.name, records, s.skipRows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded extract",
		"extract", s.name,
		"range", s.readRange,
		"columns", len(table.Header),
		"rows", len(table.Rows))

	return table, nil
}
