package config

// rules.go loads optional per-platform validation overrides from YAML.
// The file maps a platform key to its rules:
//
//	flipkart:
//	  strict: true
//	blinkit:
//	  tolerance_per_line: 0.05
//
// Platforms absent from the file use the environment defaults.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlatformRule overrides validation behavior for one platform.
type PlatformRule struct {
	// TolerancePerLine overrides the totals tolerance when positive;
	// nil or zero keeps the default.
	TolerancePerLine *float64 `yaml:"tolerance_per_line"`

	// Strict rejects POs whose declared totals disagree with the
	// recomputed ones instead of importing with a warning.
	Strict bool `yaml:"strict"`
}

// LoadRules reads per-platform overrides from the configured YAML file.
// An empty path means no overrides.
func (c *Config) LoadRules() (map[string]PlatformRule, error) {
	if c.Import.RulesFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Import.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses the YAML override document.
func ParseRules(data []byte) (map[string]PlatformRule, error) {
	rules := make(map[string]PlatformRule)
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	for key, rule := range rules {
		if rule.TolerancePerLine != nil && *rule.TolerancePerLine < 0 {
			return nil, fmt.Errorf("platform %q: tolerance_per_line must be non-negative", key)
		}
	}
	return rules, nil
}
