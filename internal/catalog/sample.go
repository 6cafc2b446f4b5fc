package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed sample/products.json
var bundled embed.FS

// SampleData returns the bundled demo catalog.
func SampleData() ([]byte, error) {
	data, err := bundled.ReadFile("sample/products.json")
	if err != nil {
		return nil, fmt.Errorf("catalog: read bundled sample: %w", err)
	}
	return data, nil
}

// EnsureSample writes the bundled catalog to path unless a file already
// exists there. It reports whether a file was written.
func EnsureSample(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("catalog: sample path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	data, err := SampleData()
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("catalog: prepare %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("catalog: write sample: %w", err)
	}
	return true, nil
}
