package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OwnerLockPath returns the path of the owner file Microsoft Office and
// LibreOffice create next to a workbook while it is open ("~$name.xlsx").
func OwnerLockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "~$"+filepath.Base(path))
}

// IsOpenInOffice reports whether an office suite currently holds path open,
// judged by the presence of its owner file.
func IsOpenInOffice(path string) bool {
	_, err := os.Stat(OwnerLockPath(path))
	return err == nil
}

// Exists reports whether path exists. Errors other than "not exist" are
// returned so permission problems are not mistaken for a missing file.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFileAtomic writes the output of write to a temporary file in the
// directory of path and renames it over path. Readers see either the old
// file or the complete new one. The temporary file keeps the extension of
// path so format-sniffing writers accept it.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
