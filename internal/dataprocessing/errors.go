package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDataset indicates the sheet holds no student rows after cleaning.
var ErrEmptyDataset = errors.New("no student rows found in sheet")

// ErrInvalidWorkbook indicates the input is not a readable xlsx workbook.
var ErrInvalidWorkbook = errors.New("invalid xlsx workbook")

// MissingSheetError is returned when the grades sheet is not in the workbook.
type MissingSheetError struct {
	Sheet     string
	Available []string
}

func (e *MissingSheetError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("sheet %q not found", e.Sheet)
	}
	return fmt.Sprintf("sheet %q not found (available: %s)", e.Sheet, strings.Join(e.Available, ", "))
}

// MissingColumnError is returned when a required column cannot be located.
type MissingColumnError struct {
	Column   string
	Position int
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q (position %d) not found in header", e.Column, e.Position)
}

// IsParseError reports whether err is one of the spreadsheet shape errors.
func IsParseError(err error) bool {
	var sheetErr *MissingSheetError
	var columnErr *MissingColumnError
	return errors.As(err, &sheetErr) ||
		errors.As(err, &columnErr) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrInvalidWorkbook)
}
