package hostcore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigProvider supplies the configuration object attached to a component.
// The core treats the object as opaque; parsing and persistence of full
// application configuration live outside this package.
type ConfigProvider interface {
	// GetConfig returns the configuration object.
	GetConfig() any
}

// StdConfigProvider wraps an arbitrary value as a ConfigProvider.
type StdConfigProvider struct {
	cfg any
}

// NewStdConfigProvider creates a provider around the given value.
func NewStdConfigProvider(cfg any) *StdConfigProvider {
	return &StdConfigProvider{cfg: cfg}
}

// GetConfig returns the configuration object.
func (s *StdConfigProvider) GetConfig() any {
	return s.cfg
}

// NewFileConfigProvider reads a component configuration file into a generic
// map keyed by section. YAML (.yaml/.yml) and TOML (.toml) are supported,
// chosen by file extension.
func NewFileConfigProvider(path string) (ConfigProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := make(map[string]any)
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %q: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConfigFormat, ext)
	}

	return &StdConfigProvider{cfg: cfg}, nil
}

// FeedKey extracts the named key from a map-backed provider into target.
// The value is remarshalled through YAML to handle type conversions, the same
// way section extraction works for keyed config files elsewhere in the stack.
func FeedKey(cp ConfigProvider, key string, target any) error {
	if cp == nil || cp.GetConfig() == nil {
		return ErrConfigNil
	}

	cfg, ok := cp.GetConfig().(map[string]any)
	if !ok {
		return fmt.Errorf("%w: provider does not hold a keyed map", ErrConfigKeyNotFound)
	}

	value, exists := cfg[key]
	if !exists {
		return fmt.Errorf("%w: %s", ErrConfigKeyNotFound, key)
	}

	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	if err := yaml.Unmarshal(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal value for key %s: %w", key, err)
	}

	return nil
}
