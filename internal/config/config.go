// Package config loads generation settings from YAML or CUE files.
//
// Both formats decode into Config. YAML files are decoded strictly (unknown
// fields are errors). CUE files are unified with an embedded schema that
// bounds every rule before any Go-side validation runs.
//
// A file with no rules field uses wheel.DefaultRules; an explicit empty list
// disables filtering.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/primewheel/internal/wheel"
)

// RuleSpec is a rule as written in a config file. Fields are signed so that
// negative values reach validation instead of failing to decode.
type RuleSpec struct {
	Modulus int64 `yaml:"modulus" json:"modulus"`
	Residue int64 `yaml:"residue" json:"residue"`
}

// Config is a generation request.
type Config struct {
	// Name labels the run when it is persisted.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Rules are the forbidden residues. Nil means the defaults.
	Rules []RuleSpec `yaml:"rules,omitempty" json:"rules,omitempty"`

	// Start is the inclusive lower bound (values below 2 start at 2).
	Start uint64 `yaml:"start,omitempty" json:"start,omitempty"`

	// Count is how many primes to write. Zero means the output default.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// PerLine is the row width. Zero means the output default.
	PerLine int `yaml:"per_line,omitempty" json:"per_line,omitempty"`

	// Output is a file path; empty means standard output.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// ConfigError reports a problem in a config file.
type ConfigError struct {
	Path    string
	Field   string
	Message string
	Line    int   // 0 when unknown
	Err     error // underlying cause, if any
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Field, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads a config file, choosing the decoder by extension
// (.yaml, .yml or .cue).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return nil, &ConfigError{Path: path, Field: "file", Message: fmt.Sprintf("unsupported config extension %q", ext)}
	}
}

// ParseYAML decodes a YAML config, rejecting unknown fields.
func ParseYAML(path string, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.Path = path
		}
		return nil, err
	}
	return &cfg, nil
}

// Validate checks counts and rule bounds.
func (c *Config) Validate() error {
	if c.Count < 0 {
		return &ConfigError{Field: "count", Message: fmt.Sprintf("must be >= 0, got %d", c.Count)}
	}
	if c.PerLine < 0 {
		return &ConfigError{Field: "per_line", Message: fmt.Sprintf("must be >= 0, got %d", c.PerLine)}
	}
	if _, err := c.RuleSet(); err != nil {
		return err
	}
	return nil
}

// RuleSet converts the configured rules. A nil Rules field yields the
// defaults.
func (c *Config) RuleSet() (wheel.RuleSet, error) {
	if c.Rules == nil {
		return wheel.DefaultRules(), nil
	}
	rules := make(wheel.RuleSet, 0, len(c.Rules))
	for i, spec := range c.Rules {
		r, err := wheel.NewRule(spec.Modulus, spec.Residue)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("rules[%d]", i), Message: err.Error(), Err: err}
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// FromRuleSet converts rules back to their config form.
func FromRuleSet(rules wheel.RuleSet) []RuleSpec {
	specs := make([]RuleSpec, len(rules))
	for i, r := range rules {
		specs[i] = RuleSpec{Modulus: int64(r.Modulus), Residue: int64(r.Residue)}
	}
	return specs
}
