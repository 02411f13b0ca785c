package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/primewheel/internal/store"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	Database string
	Rules    []string
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue an interrupted generation run",
		Long: `Continue a run recorded with "generate --db" from the prime after its last
checkpoint. Rows are appended to the run's output file (or written to
stdout if the run had none) until the run's target count is reached.

Passing --rule asserts the rule set: the command refuses to continue if
its fingerprint differs from the recorded one.

Examples:
  primewheel resume --db runs.db 0192f0c4-7a1e-7b3c-9d2e-4f5a6b7c8d9e
  primewheel resume --db runs.db <run-id> --rule 2:0 --rule 3:0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringArrayVarP(&opts.Rules, "rule", "r", nil, `expected rule as "modulus:residue" (repeatable)`)

	return cmd
}

func runResume(opts *ResumeOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	rec, err := st.GetRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to load run", err)
	}

	rules := rec.Run.Rules
	if rules.Fingerprint() != rec.Run.Fingerprint {
		return formatter.fail(ExitCommandError, ErrCodeMismatch,
			fmt.Sprintf("stored rules do not match fingerprint %s", rec.Run.Fingerprint), nil)
	}
	if len(opts.Rules) > 0 {
		expected, err := parseRuleFlags(opts.Rules)
		if err != nil {
			return ruleLoadError(formatter, err)
		}
		if fp := expected.Fingerprint(); fp != rec.Run.Fingerprint {
			return formatter.fail(ExitCommandError, ErrCodeMismatch,
				fmt.Sprintf("rule set %s (%s) differs from run rule set %s (%s)",
					expected, fp[:12], rules, rec.Run.Fingerprint[:12]), nil)
		}
	}

	if rec.Checkpoint != nil && rec.Checkpoint.Completed {
		return formatter.Success(fmt.Sprintf("run %s already complete (%d primes)", rec.Run.ID, rec.Checkpoint.Emitted))
	}

	req := generation{
		rules:   rules,
		start:   rec.ResumeFrom(),
		count:   rec.Remaining(),
		perLine: rec.Run.PerLine,
		shards:  1,
		out:     rec.Run.Output,
		append:  true,
		store:   st,
		runID:   rec.Run.ID,
	}
	if rec.Checkpoint != nil {
		req.base = *rec.Checkpoint
	}

	slog.Info("resuming run",
		"run_id", rec.Run.ID,
		"from", req.start,
		"remaining", req.count,
	)

	res, err := req.execute(ctx, cmd)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, "generation failed", err)
	}
	slog.Info("run complete", "run_id", rec.Run.ID, "emitted", req.base.Emitted+res.Emitted)

	return reportGeneration(formatter, req, res)
}
