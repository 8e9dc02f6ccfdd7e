package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Workspace is a private temporary directory for one export. Everything
// written into it is removed by Cleanup; only published files survive.
type Workspace struct {
	dir    string
	logger *slog.Logger
}

// NewWorkspace creates a fresh directory under baseDir (os.TempDir when empty).
func NewWorkspace(baseDir, prefix string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create temp base directory: %w", err)
		}
	}

	dir, err := os.MkdirTemp(baseDir, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	logger.Debug("Workspace created", slog.String("dir", dir))
	return &Workspace{dir: dir, logger: logger}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the absolute path of a file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// WriteFile writes data to a file inside the workspace and returns its path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// Publish moves a workspace file to dst, creating its directory.
func (w *Workspace) Publish(name, dst string) error {
	src := w.Path(name)

	w.logger.Info("Publishing file",
		slog.String("src_path", src),
		slog.String("dst_path", dst))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Try rename first (atomic if on same filesystem)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Fall back to copy and delete
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// Cleanup removes the workspace and everything left in it.
func (w *Workspace) Cleanup() error {
	if err := os.RemoveAll(w.dir); err != nil {
		w.logger.Warn("Failed to remove workspace",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()))
		return err
	}
	w.logger.Debug("Workspace removed", slog.String("dir", w.dir))
	return nil
}

// CopyFile copies a file from source to destination
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	// Write next to the destination, then rename into place
	tmp := dst + ".partial"
	dstFile, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := dstFile.Sync(); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync destination file: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	return os.Rename(tmp, dst)
}
