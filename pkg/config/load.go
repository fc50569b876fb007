package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads a venue rule table from a YAML file, applies defaults and
// validates it. Environment variables are not consulted; see
// LoadWithEnvOverrides.
func Load(path string) (*Venue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table %q: %w", path, err)
	}

	var v Venue
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse rule table %q: %w", path, err)
	}

	ApplyDefaults(&v)

	if err := Validate(&v); err != nil {
		return nil, fmt.Errorf("rule table %q: %w", path, err)
	}

	return &v, nil
}

// LoadWithEnvOverrides loads a rule table and applies RATEGATE_* environment
// overrides on top:
//
//	RATEGATE_TIER              account tier level (integer)
//	RATEGATE_RECONCILE_POLICY  "overwrite" or "raise_only"
//	RATEGATE_DEFAULT_CATEGORY  fallback category name
//
// Environment variables take precedence over file contents. The merged
// table is re-validated.
func LoadWithEnvOverrides(path string) (*Venue, error) {
	v, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(v)

	if err := Validate(v); err != nil {
		return nil, fmt.Errorf("rule table %q after environment overrides: %w", path, err)
	}

	return v, nil
}

func applyEnvOverrides(v *Venue) {
	if val := os.Getenv("RATEGATE_TIER"); val != "" {
		if tier, err := strconv.Atoi(val); err == nil {
			v.Tier = tier
		}
	}
	if val := os.Getenv("RATEGATE_RECONCILE_POLICY"); val != "" {
		v.ReconcilePolicy = val
	}
	if val := os.Getenv("RATEGATE_DEFAULT_CATEGORY"); val != "" {
		v.DefaultCategory = val
	}
}
