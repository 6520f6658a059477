package config

import "fmt"

// Provider defines the interface for retrieving bundle configurations.
type Provider interface {
	GetBundleConfig(customerID string) (*BundleConfig, error)
}

// MemoryConfigRegistry implements Provider using an in-memory map.
type MemoryConfigRegistry struct {
	bundles map[string]*BundleConfig
}

// NewMemoryConfigRegistry creates a new registry with the given bundles.
func NewMemoryConfigRegistry(bundles map[string]*BundleConfig) *MemoryConfigRegistry {
	return &MemoryConfigRegistry{
		bundles: bundles,
	}
}

// NewDirRegistry builds a registry from every bundle config in a directory.
func NewDirRegistry(dir string) (*MemoryConfigRegistry, error) {
	bundles, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return NewMemoryConfigRegistry(bundles), nil
}

// GetBundleConfig retrieves a bundle config by customer id.
func (r *MemoryConfigRegistry) GetBundleConfig(customerID string) (*BundleConfig, error) {
	if cfg, ok := r.bundles[customerID]; ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("bundle config not found: %s", customerID)
}
