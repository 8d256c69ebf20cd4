package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Strategy kinds accepted in a selectors override file.
const (
	StrategyCSS   = "css"
	StrategyXPath = "xpath"
)

// SelectorStrategy is one way of locating a UI element, as written in the
// selectors override file.
type SelectorStrategy struct {
	Kind  string `yaml:"kind"` // css or xpath
	Query string `yaml:"query"`
}

// SelectorsConfig maps logical role names to ordered strategy lists. A role
// present here replaces the compiled-in list for that role wholesale; roles
// not mentioned keep their defaults.
type SelectorsConfig struct {
	Roles map[string][]SelectorStrategy `yaml:"roles"`
}

// LoadSelectorsFromFile loads a selectors override from a YAML file. The
// host page is versioned independently of this tool, so operators can fix
// selector drift here without touching code.
func LoadSelectorsFromFile(filename string) (*SelectorsConfig, error) {
	// Try relative to the config directory first
	path := filename
	if !filepath.IsAbs(filename) {
		candidate := filepath.Join(filepath.Dir(DefaultConfigPath()), filename)
		if fileExists(candidate) {
			path = candidate
		}
	}
	if !fileExists(path) {
		return nil, fmt.Errorf("selectors file not found: %s", filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors file: %w", err)
	}

	var sc SelectorsConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse selectors file: %w", err)
	}
	if len(sc.Roles) == 0 {
		return nil, fmt.Errorf("invalid selectors file: missing roles section")
	}

	for role, strategies := range sc.Roles {
		if len(strategies) == 0 {
			return nil, fmt.Errorf("role %q has no strategies", role)
		}
		for i, s := range strategies {
			if s.Kind != StrategyCSS && s.Kind != StrategyXPath {
				return nil, fmt.Errorf("role %q strategy %d: unknown kind %q (want css or xpath)", role, i, s.Kind)
			}
			if s.Query == "" {
				return nil, fmt.Errorf("role %q strategy %d: empty query", role, i)
			}
		}
	}

	return &sc, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
