package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, dir, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Vardas"))
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	head := []byte("PK\x03\x04rest")

	tests := []struct {
		name    string
		file    string
		size    int64
		head    []byte
		wantErr error
	}{
		{name: "valid workbook", file: "klase.xlsx", size: 2048, head: head},
		{name: "upper case extension", file: "KLASE.XLSX", size: 2048, head: head},
		{name: "legacy xls", file: "klase.xls", size: 2048, head: head, wantErr: ErrUnsupportedExtension},
		{name: "csv", file: "klase.csv", size: 2048, head: head, wantErr: ErrUnsupportedExtension},
		{name: "lock file", file: "~$klase.xlsx", size: 2048, head: head, wantErr: ErrTemporaryFile},
		{name: "empty", file: "klase.xlsx", size: 0, head: nil, wantErr: ErrEmptyFile},
		{name: "too large", file: "klase.xlsx", size: 4097, head: head, wantErr: ErrFileTooLarge},
		{name: "renamed text file", file: "klase.xlsx", size: 10, head: []byte("Vardas;Pavarde"), wantErr: ErrNotWorkbook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(slog.Default(), 4096)
			err := v.ValidateUpload(tt.file, tt.size, tt.head)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFileValidator_ValidateUploadNoLimit(t *testing.T) {
	v := NewFileValidator(nil, 0)
	assert.NoError(t, v.ValidateUpload("a.xlsx", 1<<40, []byte("PK\x03\x04")))
}

func TestFileValidator_ValidateWorkbookFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       error
		errorContains string
	}{
		{
			name: "real workbook",
			setupFunc: func(t *testing.T) string {
				return writeWorkbook(t, t.TempDir(), "klase.xlsx")
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.xlsx")
			},
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "dir.xlsx")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			errorContains: "is a directory",
		},
		{
			name: "wrong extension",
			setupFunc: func(t *testing.T) string {
				return writeWorkbook(t, t.TempDir(), "klase.xlsm")
			},
			wantErr: ErrUnsupportedExtension,
		},
		{
			name: "text with xlsx extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "fake.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))
				return path
			},
			wantErr: ErrNotWorkbook,
		},
		{
			name: "empty xlsx",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "empty.xlsx")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
			wantErr: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(slog.Default(), 0)
			err := v.ValidateWorkbookFile(tt.setupFunc(t))

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(slog.Default(), 0)

	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file must be removed")
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	v := NewFileValidator(slog.Default(), 0)
	dir := t.TempDir()

	assert.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "ataskaita.pdf")))

	err := v.ValidateOutputFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}
