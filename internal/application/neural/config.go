package neural

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
)

// LoadConfig reads a YAML config file over the defaults and validates it.
func LoadConfig(path string) (*domainNeural.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := domainNeural.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg as YAML, creating parent directories as needed.
func SaveConfig(path string, cfg domainNeural.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// builtinDatasets maps dataset names to their constructors.
var builtinDatasets = map[string]func() domainNeural.Dataset{
	"xor": domainNeural.XORDataset,
}

// LoadDataset resolves name as a built-in dataset or, failing that, as a
// YAML or JSON file holding inputs and targets.
func LoadDataset(name string) (domainNeural.Dataset, error) {
	if build, ok := builtinDatasets[strings.ToLower(name)]; ok {
		return build(), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return domainNeural.Dataset{}, fmt.Errorf("unknown dataset %q: %w", name, err)
	}

	var ds domainNeural.Dataset
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		err = json.Unmarshal(data, &ds)
	default:
		err = yaml.Unmarshal(data, &ds)
	}
	if err != nil {
		return domainNeural.Dataset{}, fmt.Errorf("failed to parse dataset %s: %w", name, err)
	}
	if err := ds.Validate(); err != nil {
		return domainNeural.Dataset{}, fmt.Errorf("dataset %s: %w", name, err)
	}
	return ds, nil
}
