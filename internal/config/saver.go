package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Save writes s as YAML. The file may hold a client secret, so it is only
// readable by its owner.
func Save(s *Settings, path string) error {
	if s == nil {
		return fmt.Errorf("config cannot be nil")
	}

	data, err := s.yamlBytes()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating config directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Render returns the YAML form of s with the client secret masked.
func Render(s *Settings) (string, error) {
	data, err := s.Redacted().yamlBytes()
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}
