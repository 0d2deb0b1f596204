package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveJSON writes v as indented JSON to dir/filename, creating dir.
// The file is replaced atomically so readers never see a partial snapshot.
func SaveJSON(dir, filename string, v interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}

	fullPath := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(jsonData, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}

// LoadJSON decodes dir/filename into v.
func LoadJSON(dir, filename string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}
	return nil
}
