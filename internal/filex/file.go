// Package filex stages uploaded files on local disk before they are pushed
// to object storage.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureSubdDir creates dirName (relative to the working directory unless
// absolute) and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SaveTemp copies r into a fresh file inside dir. The file keeps the
// extension of originalName so content type can be derived later. On error
// nothing is left behind.
func SaveTemp(dir string, r io.Reader, originalName string) (path string, err error) {
	f, err := os.CreateTemp(dir, "upload-*"+cleanExt(originalName))
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close temp: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(f.Name())
			path = ""
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write temp: %w", err)
	}

	return f.Name(), nil
}

// RemoveQuietly deletes path, treating a missing file as success.
func RemoveQuietly(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\*`) {
		return ""
	}
	return ext
}
