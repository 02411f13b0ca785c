package wheel

import (
	"errors"
	"fmt"
)

// RuleErrorCode categorizes rule and wheel construction errors.
type RuleErrorCode string

const (
	// ErrCodeInvalidRule indicates a modulus < 2 or a residue outside [0, modulus).
	ErrCodeInvalidRule RuleErrorCode = "INVALID_RULE"

	// ErrCodePeriodOverflow indicates the product of distinct moduli does not fit in 64 bits.
	ErrCodePeriodOverflow RuleErrorCode = "PERIOD_OVERFLOW"

	// ErrCodeMalformedRule indicates rule text that could not be parsed.
	ErrCodeMalformedRule RuleErrorCode = "MALFORMED_RULE"
)

// RuleError describes why a rule or rule set was rejected.
type RuleError struct {
	Code    RuleErrorCode
	Message string

	// Index is the position of the offending rule in its rule set, or -1.
	Index int
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (rule %d)", e.Code, e.Message, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidRule reports whether err is, or wraps, an invalid or malformed rule error.
func IsInvalidRule(err error) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidRule || re.Code == ErrCodeMalformedRule
	}
	return false
}

// IsPeriodOverflow reports whether err is, or wraps, a period overflow error.
func IsPeriodOverflow(err error) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code == ErrCodePeriodOverflow
	}
	return false
}

func newInvalidRuleError(index int, format string, args ...any) *RuleError {
	return &RuleError{
		Code:    ErrCodeInvalidRule,
		Message: fmt.Sprintf(format, args...),
		Index:   index,
	}
}
