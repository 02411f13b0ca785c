package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/primewheel/internal/wheel"
)

// WheelOptions holds flags for the wheel command.
type WheelOptions struct {
	*RootOptions
	RuleFlags
	Survivors bool
}

// WheelInfo describes a built wheel.
type WheelInfo struct {
	Rules       string   `json:"rules"`
	Fingerprint string   `json:"fingerprint"`
	Period      uint64   `json:"period"`
	Count       int      `json:"survivor_count"`
	Density     float64  `json:"density"`
	Survivors   []uint64 `json:"survivors,omitempty"`
}

func (w WheelInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rules:       %s\n", w.Rules)
	fmt.Fprintf(&b, "fingerprint: %s\n", w.Fingerprint)
	fmt.Fprintf(&b, "period:      %d\n", w.Period)
	fmt.Fprintf(&b, "survivors:   %d\n", w.Count)
	fmt.Fprintf(&b, "density:     %.6f", w.Density)
	if len(w.Survivors) > 0 {
		b.WriteString("\nresidues:")
		for _, r := range w.Survivors {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatUint(r, 10))
		}
	}
	return b.String()
}

// NewWheelCommand creates the wheel command.
func NewWheelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WheelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "wheel",
		Short: "Describe the wheel built from a rule set",
		Long: `Build the residue wheel for a rule set and print its period, the number
of surviving residues and their density.

Building costs O(period x rules); large coprime moduli make large wheels.

Examples:
  primewheel wheel
  primewheel wheel --rule 2:0 --rule 3:0 --survivors
  primewheel wheel --config rules.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWheel(opts, cmd)
		},
	}

	opts.RuleFlags.register(cmd, true)
	cmd.Flags().BoolVar(&opts.Survivors, "survivors", false, "list the surviving residues")

	return cmd
}

func runWheel(opts *WheelOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	_, rules, err := opts.RuleFlags.load()
	if err != nil {
		return ruleLoadError(formatter, err)
	}

	w, err := wheel.Build(rules)
	if err != nil {
		return ruleLoadError(formatter, err)
	}

	desc := rules.String()
	if len(rules) == 0 {
		desc = "none"
	}
	info := WheelInfo{
		Rules:       desc,
		Fingerprint: rules.Fingerprint(),
		Period:      w.Period(),
		Count:       w.Len(),
		Density:     w.Density(),
	}
	if opts.Survivors {
		info.Survivors = w.Survivors()
	}
	return formatter.Success(info)
}
