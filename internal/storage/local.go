package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// maxTempNameBytes leaves room in a 255-byte file name for the random
	// part os.CreateTemp substitutes for "*" (at most 10 digits) and "_".
	maxTempNameBytes = 255 - 11
	maxTempExtBytes  = 16
)

// Compile-time check that TempStorage implements TempFiles.
var _ TempFiles = (*TempStorage)(nil)

// TempStorage implements TempFiles on local disk.
// Files live in a shared directory; each one gets a random prefix so
// concurrent requests never share a path.
type TempStorage struct {
	tempDir string
}

// NewTempStorage creates a new TempStorage instance.
// If tempDir is empty, a "videoupload" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewTempStorage(tempDir string) (*TempStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "videoupload")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &TempStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *TempStorage) TempDir() string {
	return s.tempDir
}

// SaveTemp saves data to a temporary file and returns the file path.
// The file name is a random prefix followed by name, so the extension
// survives for tools that sniff it.
func (s *TempStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	// The directory may have been removed by a tmp reaper since startup.
	if err := os.MkdirAll(s.tempDir, 0750); err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}

	f, err := os.CreateTemp(s.tempDir, tempPattern(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered. Missing files are not an error.
func (s *TempStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// tempPattern builds an os.CreateTemp pattern from name, keeping only its
// final path element, shortened so the created file name stays within
// 255 bytes.
func tempPattern(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == string(filepath.Separator) {
		base = ""
	}
	if len(base) > maxTempNameBytes {
		ext := filepath.Ext(base)
		if ext == base || len(ext) > maxTempExtBytes {
			ext = ""
		}
		base = truncateUTF8(strings.TrimSuffix(base, ext), maxTempNameBytes-len(ext)) + ext
	}
	return "*_" + base
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
