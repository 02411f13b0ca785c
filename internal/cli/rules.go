package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/primewheel/internal/config"
	"github.com/roach88/primewheel/internal/wheel"
)

// RuleFlags are the rule-selection flags shared by generate, wheel and resume.
type RuleFlags struct {
	Config string   // YAML or CUE config file
	Rules  []string // inline "m:r" rules; override the config's rules
}

func (f *RuleFlags) register(cmd *cobra.Command, withConfig bool) {
	if withConfig {
		cmd.Flags().StringVarP(&f.Config, "config", "c", "", "config file (.yaml, .yml or .cue)")
	}
	cmd.Flags().StringArrayVarP(&f.Rules, "rule", "r", nil, `forbidden residue as "modulus:residue" (repeatable)`)
}

// load reads the config file (if any) and resolves the rule set. Inline
// rules replace the file's rules.
func (f *RuleFlags) load() (*config.Config, wheel.RuleSet, error) {
	cfg := &config.Config{}
	if f.Config != "" {
		loaded, err := config.Load(f.Config)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	if len(f.Rules) > 0 {
		rules, err := parseRuleFlags(f.Rules)
		if err != nil {
			return nil, nil, err
		}
		cfg.Rules = config.FromRuleSet(rules)
		return cfg, rules, nil
	}

	rules, err := cfg.RuleSet()
	if err != nil {
		return nil, nil, err
	}
	return cfg, rules, nil
}

// parseRuleFlags parses repeated --rule values, tagging errors with the
// position of the offending flag.
func parseRuleFlags(values []string) (wheel.RuleSet, error) {
	rules := make(wheel.RuleSet, 0, len(values))
	for i, v := range values {
		r, err := wheel.ParseRule(v)
		if err != nil {
			var re *wheel.RuleError
			if errors.As(err, &re) {
				re.Index = i
			}
			return nil, fmt.Errorf("--rule %q: %w", v, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ruleLoadError maps a rule or config failure to the matching error code.
func ruleLoadError(f *OutputFormatter, err error) error {
	var cfgErr *config.ConfigError
	switch {
	case wheel.IsInvalidRule(err), wheel.IsPeriodOverflow(err):
		return f.fail(ExitCommandError, ErrCodeInvalidRule, "invalid rules", err)
	case errors.As(err, &cfgErr):
		return f.fail(ExitCommandError, ErrCodeConfig, "invalid config", err)
	default:
		return f.fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
}
