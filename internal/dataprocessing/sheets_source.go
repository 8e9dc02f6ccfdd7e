package dataprocessing

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads the grades tab from a Google Sheets spreadsheet.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsSource creates a Sheets API client for one spreadsheet.
func NewSheetsSource(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsSource, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsSource{service: service, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsSource) Name() string {
	return "sheets:" + s.spreadsheetID
}

// ReadSheet checks the spreadsheet metadata for the tab, then reads its formatted values.
func (s *SheetsSource) ReadSheet(ctx context.Context, sheet string) ([][]string, error) {
	meta, err := s.service.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}

	available := make([]string, 0, len(meta.Sheets))
	found := false
	for _, sh := range meta.Sheets {
		if sh.Properties == nil {
			continue
		}
		available = append(available, sh.Properties.Title)
		if sh.Properties.Title == sheet {
			found = true
		}
	}
	if !found {
		return nil, &MissingSheetError{Sheet: sheet, Available: available}
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(sheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet values: %w", err)
	}

	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, v := range values {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// sheetRange quotes a tab name for A1 notation.
func sheetRange(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
