package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoInput is returned when no input image path was given.
var ErrNoInput = errors.New("no input image")

// ValidateInputFile checks that the path exists and is a regular file, then
// returns the absolute path.
func ValidateInputFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrNoInput
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("input file not found: %s", path)
		}
		return "", fmt.Errorf("access input file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input path is a directory: %s", path)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("input file is empty: %s", path)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// ValidateOutputDirectory creates dir if needed and checks it is a
// directory, returning the absolute path.
func ValidateOutputDirectory(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("access output directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output path is not a directory: %s", dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return dir, nil
}
