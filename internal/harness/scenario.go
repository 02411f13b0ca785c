package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/primewheel/internal/wheel"
)

// Scenario defines a generation scenario and its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules in "modulus:residue" form. Nil means wheel.DefaultRules;
	// an explicit empty list means no rules.
	Rules []string `yaml:"rules,omitempty"`

	// Start is the inclusive lower bound.
	Start uint64 `yaml:"start,omitempty"`

	// Count is how many primes to generate.
	Count int `yaml:"count"`

	// PerLine is the row width for formatted output (default 12).
	PerLine int `yaml:"per_line,omitempty"`

	// Shards > 1 runs the parallel stream with that many workers.
	Shards int `yaml:"shards,omitempty"`

	// Expect is the expected prefix of the generated sequence.
	Expect []uint64 `yaml:"expect,omitempty"`

	// ExpectError is the expected wheel.RuleErrorCode when construction
	// must fail. Count and Expect are ignored when set.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// RuleSet parses the scenario's rules. Parse errors are returned as-is so
// that scenarios can expect them.
func (s *Scenario) RuleSet() (wheel.RuleSet, error) {
	if s.Rules == nil {
		return wheel.DefaultRules(), nil
	}
	rules := make(wheel.RuleSet, 0, len(s.Rules))
	for i, text := range s.Rules {
		r, err := wheel.ParseRule(text)
		if err != nil {
			var re *wheel.RuleError
			if errors.As(err, &re) {
				re.Index = i
			}
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.ExpectError != "" {
		return nil
	}

	if s.Count <= 0 {
		return fmt.Errorf("count must be > 0")
	}

	if len(s.Expect) > s.Count {
		return fmt.Errorf("expect has %d values but count is %d", len(s.Expect), s.Count)
	}

	if s.PerLine < 0 || s.Shards < 0 {
		return fmt.Errorf("per_line and shards must be >= 0")
	}

	return nil
}
