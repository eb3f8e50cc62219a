package config

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesFS embed.FS

// ValidityRules is the denylist used by the URL validity filter.
// All entries are matched against the lower-cased canonical URL.
type ValidityRules struct {
	Substrings []string `yaml:"substrings" json:"substrings"`
	Starts     []string `yaml:"starts" json:"starts"`
	Ends       []string `yaml:"ends" json:"ends"`
}

// LoadRules reads a rule file in YAML (or JSON, which YAML accepts).
// An empty path yields the embedded default rule set.
func LoadRules(path string) (ValidityRules, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaultRulesFS.ReadFile("default_rules.yaml")
		if err != nil {
			return ValidityRules{}, fmt.Errorf("reading embedded rules: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return ValidityRules{}, fmt.Errorf("reading rules %s: %w", path, err)
		}
	}
	return ParseRules(data)
}

// ParseRules decodes a rule document.
func ParseRules(data []byte) (ValidityRules, error) {
	var rules ValidityRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return ValidityRules{}, fmt.Errorf("parsing rules: %w", err)
	}
	return rules, nil
}
