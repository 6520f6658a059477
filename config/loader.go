package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a bundle configuration from a JSON or YAML file, chosen by
// extension. Bundle configs in the wild are JSON; YAML is accepted for
// hand-written configs.
func Load(path string) (*BundleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle config file: %w", err)
	}

	var cfg BundleConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse bundle config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse bundle config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// LoadDir loads every bundle config in a directory, keyed by customer id
// when set, otherwise by file stem.
func LoadDir(dir string) (map[string]*BundleConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	bundles := make(map[string]*BundleConfig)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		cfg, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		key := cfg.Meta.CustomerID
		if key == "" {
			key = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		bundles[key] = cfg
	}
	return bundles, nil
}
