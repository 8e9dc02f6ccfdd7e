package validation

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Upload and file check failures
var (
	ErrEmptyFile            = errors.New("file is empty")
	ErrFileTooLarge         = errors.New("file exceeds the size limit")
	ErrUnsupportedExtension = errors.New("only .xlsx workbooks are accepted")
	ErrTemporaryFile        = errors.New("file is an Excel lock file")
	ErrNotWorkbook          = errors.New("file content is not an xlsx workbook")
)

// xlsx files are zip archives
var zipMagic = []byte("PK\x03\x04")

// WorkbookExtension is the only accepted upload extension.
const WorkbookExtension = ".xlsx"

// FileValidator checks workbook inputs and report outputs for the CLI and
// the upload endpoint.
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewFileValidator creates a new file validator. maxBytes of zero disables
// the size check.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// ValidateUpload checks an uploaded file's name, size and first bytes.
func (v *FileValidator) ValidateUpload(name string, size int64, head []byte) error {
	if err := v.checkName(name); err != nil {
		return err
	}
	if size == 0 || len(head) == 0 {
		return ErrEmptyFile
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("Upload too large",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("max_bytes", v.maxBytes))
		return fmt.Errorf("%w (%d > %d bytes)", ErrFileTooLarge, size, v.maxBytes)
	}
	if !bytes.HasPrefix(head, zipMagic) {
		v.logger.Warn("Upload is not a zip archive",
			slog.String("file", name))
		return ErrNotWorkbook
	}
	return nil
}

// ValidateWorkbookFile checks that path is a readable .xlsx file.
func (v *FileValidator) ValidateWorkbookFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if err := v.checkName(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, len(zipMagic))
	n, _ := f.Read(head)
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	if !bytes.HasPrefix(head[:n], zipMagic) {
		return fmt.Errorf("%s: %w", path, ErrNotWorkbook)
	}
	return nil
}

func (v *FileValidator) checkName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != WorkbookExtension {
		v.logger.Warn("File is not an xlsx workbook",
			slog.String("file", name),
			slog.String("extension", ext))
		return ErrUnsupportedExtension
	}
	if strings.HasPrefix(filepath.Base(name), "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", name))
		return ErrTemporaryFile
	}
	return nil
}

// ValidateFile checks if a specific file exists and is not a directory
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a scratch file
	scratch, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	scratch.Close()
	os.Remove(scratch.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateOutputFile checks that the parent directory of path is writable
// and that path is not an existing directory.
func (v *FileValidator) ValidateOutputFile(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}
