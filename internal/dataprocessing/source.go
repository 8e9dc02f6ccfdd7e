package dataprocessing

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Source yields the raw cell text of a named sheet, one slice per row.
type Source interface {
	Name() string
	ReadSheet(ctx context.Context, sheet string) ([][]string, error)
}

// WorkbookSource reads sheets from an xlsx workbook.
type WorkbookSource struct {
	name string
	file *excelize.File
}

// OpenWorkbook reads a workbook from r. The caller must Close it.
func OpenWorkbook(r io.Reader, name string) (*WorkbookSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	return &WorkbookSource{name: name, file: f}, nil
}

// OpenWorkbookFile opens a workbook from disk. The caller must Close it.
func OpenWorkbookFile(path string) (*WorkbookSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	return &WorkbookSource{name: path, file: f}, nil
}

func (w *WorkbookSource) Name() string {
	return w.name
}

// Sheets lists the sheet names in workbook order.
func (w *WorkbookSource) Sheets() []string {
	return w.file.GetSheetList()
}

// ReadSheet returns the rows of the sheet whose name matches exactly.
func (w *WorkbookSource) ReadSheet(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	available := w.file.GetSheetList()
	found := false
	for _, name := range available {
		if name == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, &MissingSheetError{Sheet: sheet, Available: available}
	}

	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (w *WorkbookSource) Close() error {
	return w.file.Close()
}
