package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/primewheel/internal/wheel"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "primes.yaml", `
name: odd-heavy
rules:
  - {modulus: 2, residue: 0}
  - {modulus: 6, residue: 5}
start: 100
count: 500
per_line: 8
output: primes.txt
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "odd-heavy", cfg.Name)
	assert.Equal(t, uint64(100), cfg.Start)
	assert.Equal(t, 500, cfg.Count)
	assert.Equal(t, 8, cfg.PerLine)
	assert.Equal(t, "primes.txt", cfg.Output)

	rules, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Equal(t, wheel.RuleSet{{Modulus: 2, Residue: 0}, {Modulus: 6, Residue: 5}}, rules)
}

func TestLoadYAMLOmittedRulesUsesDefaults(t *testing.T) {
	path := writeFile(t, "primes.yml", "count: 10\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	rules, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Equal(t, wheel.DefaultRules(), rules)
}

func TestLoadYAMLEmptyRulesDisablesFiltering(t *testing.T) {
	path := writeFile(t, "primes.yaml", "rules: []\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	rules, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadYAMLUnknownField(t *testing.T) {
	path := writeFile(t, "primes.yaml", "rule: []\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadYAMLInvalidRule(t *testing.T) {
	path := writeFile(t, "primes.yaml", `
rules:
  - {modulus: 3, residue: 0}
  - {modulus: 4, residue: -1}
`)

	_, err := Load(path)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "rules[1]", ce.Field)
	assert.Equal(t, path, ce.Path)
	assert.True(t, wheel.IsInvalidRule(err))

	var re *wheel.RuleError
	require.ErrorAs(t, err, &re)
}

func TestLoadYAMLNegativeCount(t *testing.T) {
	path := writeFile(t, "primes.yaml", "count: -3\n")

	_, err := Load(path)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "count", ce.Field)
}

func TestLoadCUE(t *testing.T) {
	path := writeFile(t, "primes.cue", `
name:  "thick"
start: 2
count: 1000
_zero: residue: 0
rules: [
	_zero & {modulus: 2},
	_zero & {modulus: 3},
	_zero & {modulus: 5},
	_zero & {modulus: 7},
	{modulus: 4, residue: 3},
]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "thick", cfg.Name)
	assert.Equal(t, 1000, cfg.Count)

	rules, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Equal(t, wheel.RuleSet{{Modulus: 2}, {Modulus: 3}, {Modulus: 5}, {Modulus: 7}, {Modulus: 4, Residue: 3}}, rules)
}

func TestLoadCUESchemaRejectsResidueOutOfRange(t *testing.T) {
	path := writeFile(t, "primes.cue", `rules: [{modulus: 5, residue: 5}]`)

	_, err := Load(path)
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
}

func TestLoadCUESchemaRejectsSmallModulus(t *testing.T) {
	path := writeFile(t, "primes.cue", `rules: [{modulus: 1, residue: 0}]`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadCUEUnknownField(t *testing.T) {
	path := writeFile(t, "primes.cue", `colour: "blue"`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadCUESyntaxError(t *testing.T) {
	path := writeFile(t, "primes.cue", `rules: [`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "primes.toml", "count = 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config extension")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestFromRuleSetRoundTrip(t *testing.T) {
	rules := wheel.RuleSet{{Modulus: 9, Residue: 4}}
	cfg := Config{Rules: FromRuleSet(rules)}

	got, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}
