package wheel

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule forbids every integer n with n mod Modulus == Residue.
type Rule struct {
	Modulus uint64 `json:"modulus" yaml:"modulus"`
	Residue uint64 `json:"residue" yaml:"residue"`
}

// NewRule validates a signed (modulus, residue) pair and returns it as a Rule.
func NewRule(modulus, residue int64) (Rule, error) {
	if modulus < 2 {
		return Rule{}, newInvalidRuleError(-1, "modulus %d must be >= 2", modulus)
	}
	if residue < 0 || residue >= modulus {
		return Rule{}, newInvalidRuleError(-1, "residue %d must be in [0, %d)", residue, modulus)
	}
	return Rule{Modulus: uint64(modulus), Residue: uint64(residue)}, nil
}

// ParseRule parses the "modulus:residue" text form, e.g. "6:3".
func ParseRule(s string) (Rule, error) {
	m, r, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Rule{}, &RuleError{Code: ErrCodeMalformedRule, Message: fmt.Sprintf("rule %q is not in modulus:residue form", s), Index: -1}
	}
	modulus, err := strconv.ParseInt(strings.TrimSpace(m), 10, 64)
	if err != nil {
		return Rule{}, &RuleError{Code: ErrCodeMalformedRule, Message: fmt.Sprintf("rule %q: bad modulus: %v", s, err), Index: -1}
	}
	residue, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
	if err != nil {
		return Rule{}, &RuleError{Code: ErrCodeMalformedRule, Message: fmt.Sprintf("rule %q: bad residue: %v", s, err), Index: -1}
	}
	return NewRule(modulus, residue)
}

// Validate checks the rule's own bounds.
func (r Rule) Validate() error {
	if r.Modulus < 2 {
		return newInvalidRuleError(-1, "modulus %d must be >= 2", r.Modulus)
	}
	if r.Residue >= r.Modulus {
		return newInvalidRuleError(-1, "residue %d must be in [0, %d)", r.Residue, r.Modulus)
	}
	return nil
}

// Forbids reports whether the rule excludes n.
func (r Rule) Forbids(n uint64) bool {
	return n%r.Modulus == r.Residue
}

func (r Rule) String() string {
	return strconv.FormatUint(r.Modulus, 10) + ":" + strconv.FormatUint(r.Residue, 10)
}

// RuleSet is an ordered list of rules. Repeated moduli are allowed.
// Callers must not mutate a RuleSet after handing it to Build.
type RuleSet []Rule

// DefaultRules returns a fresh rule set excluding residue 0 modulo
// 2, 3, 5, 7, 11 and 13.
func DefaultRules() RuleSet {
	return RuleSet{
		{Modulus: 2, Residue: 0},
		{Modulus: 3, Residue: 0},
		{Modulus: 5, Residue: 0},
		{Modulus: 7, Residue: 0},
		{Modulus: 11, Residue: 0},
		{Modulus: 13, Residue: 0},
	}
}

// ParseRuleSet parses a comma separated list of "modulus:residue" rules.
// An empty string yields an empty rule set.
func ParseRuleSet(s string) (RuleSet, error) {
	if strings.TrimSpace(s) == "" {
		return RuleSet{}, nil
	}
	parts := strings.Split(s, ",")
	rules := make(RuleSet, 0, len(parts))
	for i, part := range parts {
		r, err := ParseRule(part)
		if err != nil {
			if re, ok := err.(*RuleError); ok {
				re.Index = i
			}
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Validate checks every rule and reports the first violation with its index.
func (rs RuleSet) Validate() error {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			re := err.(*RuleError)
			re.Index = i
			return re
		}
	}
	return nil
}

// Clone returns a copy that shares no memory with rs.
func (rs RuleSet) Clone() RuleSet {
	if rs == nil {
		return nil
	}
	out := make(RuleSet, len(rs))
	copy(out, rs)
	return out
}

// String renders the set in the comma separated form accepted by ParseRuleSet.
func (rs RuleSet) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Passes reports whether n survives every rule in rules. It stops at the
// first rule that forbids n.
func Passes(n uint64, rules RuleSet) bool {
	for _, r := range rules {
		if n%r.Modulus == r.Residue {
			return false
		}
	}
	return true
}
