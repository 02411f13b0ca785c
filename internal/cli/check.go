package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/primewheel/internal/prime"
)

// CheckResult is the primality of one argument.
type CheckResult struct {
	Value string `json:"value"`
	Prime bool   `json:"prime"`
}

func (r CheckResult) String() string {
	if r.Prime {
		return r.Value + " prime"
	}
	return r.Value + " composite"
}

// CheckResults prints one result per line in text mode.
type CheckResults []CheckResult

func (rs CheckResults) String() string {
	lines := make([]string, len(rs))
	for i, r := range rs {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <n>...",
		Short: "Test integers for primality",
		Long: `Test each argument with the deterministic 64-bit Miller-Rabin test.

Arguments may be any signed or unsigned 64-bit integer; negative values,
0 and 1 are reported as composite.

Examples:
  primewheel check 97 561
  primewheel check 18446744073709551557 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	results := make(CheckResults, 0, len(args))
	for _, arg := range args {
		isPrime, err := checkArg(arg)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeInvalidValue, fmt.Sprintf("invalid integer %q", arg), err)
		}
		results = append(results, CheckResult{Value: arg, Prime: isPrime})
	}
	return formatter.Success(results)
}

func checkArg(arg string) (bool, error) {
	if n, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return prime.IsPrime(n), nil
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return false, err
	}
	return prime.IsPrimeInt64(n), nil
}
