package obstacle

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ReadFile loads a configuration YAML file, accepting the same schema aliases as generator replies.
func ReadFile(path string) (Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("read configuration: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Configuration{}, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	cfg, err := DecodeConfiguration(doc)
	if err != nil {
		return Configuration{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WriteFile writes cfg as `obstacles: [{size, position}, ...]`, creating parent directories.
func WriteFile(path string, cfg Configuration) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
