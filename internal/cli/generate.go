package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/primewheel/internal/generator"
	"github.com/roach88/primewheel/internal/output"
	"github.com/roach88/primewheel/internal/store"
	"github.com/roach88/primewheel/internal/wheel"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	RuleFlags

	Start    uint64
	Count    int
	PerLine  int
	Out      string
	Shards   int
	Database string
	Name     string

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDs store.IDGenerator
}

// GenerateResult summarizes a generation for --format json or when rows go
// to a file.
type GenerateResult struct {
	RunID       string `json:"run_id,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Emitted     int    `json:"emitted"`
	Rows        int    `json:"rows"`
	Last        uint64 `json:"last"`
	Exhausted   bool   `json:"exhausted"`
	Output      string `json:"output"`
}

func (r GenerateResult) String() string {
	s := fmt.Sprintf("wrote %d primes in %d rows to %s (last %d)", r.Emitted, r.Rows, r.Output, r.Last)
	if r.RunID != "" {
		s += "\nrun: " + r.RunID
	}
	return s
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newGenerateCommand(opts *GenerateOptions) *cobra.Command {

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write primes that pass the forbidden-residue rules",
		Long: `Write primes in increasing order, grouped into rows.

Without rules the default set excludes residue 0 modulo 2, 3, 5, 7, 11
and 13. Flags override values from --config. With --db the run and a
checkpoint after every row are recorded so that an interrupted run can
be continued with "primewheel resume".

Examples:
  primewheel generate --count 100
  primewheel generate --rule 2:0 --rule 3:0 --start 1000000 --count 50
  primewheel generate --config rules.cue --out primes.txt --db runs.db
  primewheel generate --shards 4 --count 100000 --out primes.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	opts.RuleFlags.register(cmd, true)
	cmd.Flags().Uint64Var(&opts.Start, "start", generator.MinStart, "inclusive lower bound")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", output.DefaultCount, "number of primes to write")
	cmd.Flags().IntVar(&opts.PerLine, "per-line", output.DefaultPerLine, "primes per row")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout, truncated if it exists)")
	cmd.Flags().IntVar(&opts.Shards, "shards", 1, "parallel workers (1 = sequential)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Name, "name", "", "label for the recorded run")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, rules, err := opts.RuleFlags.load()
	if err != nil {
		return ruleLoadError(formatter, err)
	}

	// Flags override the config file; the file overrides flag defaults.
	flags := cmd.Flags()
	start := opts.Start
	if !flags.Changed("start") && cfg.Start != 0 {
		start = cfg.Start
	}
	count := opts.Count
	if !flags.Changed("count") && cfg.Count != 0 {
		count = cfg.Count
	}
	perLine := opts.PerLine
	if !flags.Changed("per-line") && cfg.PerLine != 0 {
		perLine = cfg.PerLine
	}
	out := opts.Out
	if !flags.Changed("out") {
		out = cfg.Output
	}
	name := opts.Name
	if !flags.Changed("name") {
		name = cfg.Name
	}

	if count < 0 {
		return formatter.fail(ExitCommandError, ErrCodeInvalidValue, fmt.Sprintf("count must be >= 0, got %d", count), nil)
	}
	if opts.Shards < 1 {
		return formatter.fail(ExitCommandError, ErrCodeInvalidValue, fmt.Sprintf("shards must be >= 1, got %d", opts.Shards), nil)
	}

	ctx := commandContext(cmd)

	req := generation{
		rules:   rules,
		start:   start,
		count:   count,
		perLine: perLine,
		shards:  opts.Shards,
		out:     out,
	}

	if opts.Database != "" {
		st, err := openStore(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer closeStore(st)

		ids := opts.IDs
		if ids == nil {
			ids = store.UUIDv7Generator{}
		}
		run, err := store.NewRunWithIDs(ids, name, rules, start, count, perLine, out)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to create run", err)
		}
		if err := st.CreateRun(ctx, run); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to create run", err)
		}
		slog.Info("run created", "run_id", run.ID, "fingerprint", run.Fingerprint)
		req.store = st
		req.runID = run.ID
	}

	slog.Debug("generating",
		"rules", rules.String(),
		"start", start,
		"count", count,
		"per_line", perLine,
		"shards", opts.Shards,
		"out", out,
	)

	res, err := req.execute(ctx, cmd)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, "generation failed", err)
	}
	slog.Info("generation complete", "emitted", res.Emitted, "rows", res.Rows, "last", res.Last)

	return reportGeneration(formatter, req, res)
}

// generation is a single generate or resume invocation.
type generation struct {
	rules   wheel.RuleSet
	start   uint64
	count   int
	perLine int
	shards  int
	out     string
	append  bool

	// Set when the run is recorded.
	store *store.Store
	runID string
	base  store.Checkpoint // progress before this invocation
}

// execute streams primes to the output and checkpoints each row.
func (g generation) execute(ctx context.Context, cmd *cobra.Command) (output.Result, error) {
	src, closeSrc, err := newSource(ctx, g.rules, g.start, g.shards)
	if err != nil {
		return output.Result{}, err
	}
	defer closeSrc()

	opts := output.Options{
		Count:   g.count,
		PerLine: g.perLine,
		OnRow: func(row output.Row) error {
			if g.store != nil {
				cp := g.checkpoint(row.Index+1, row.Emitted, row.Values[len(row.Values)-1], false)
				// The row is already written, so record it even if cancelled.
				if err := g.store.SaveCheckpoint(context.WithoutCancel(ctx), cp); err != nil {
					return err
				}
			}
			// Stop between rows once cancelled; the checkpoint above is
			// where resume picks up.
			return ctx.Err()
		},
	}

	var res output.Result
	if g.out == "" {
		res, err = output.WriteRows(cmd.OutOrStdout(), src, opts)
	} else {
		res, err = output.WriteFile(g.out, g.append, src, opts)
	}
	if err != nil {
		return res, err
	}
	if err := generator.SourceErr(src); err != nil {
		return res, err
	}

	if g.store != nil {
		last := g.base.Last
		if res.Emitted > 0 {
			last = res.Last
		}
		cp := g.checkpoint(res.Rows, res.Emitted, last, true)
		if err := g.store.SaveCheckpoint(ctx, cp); err != nil {
			return res, err
		}
	}
	return res, nil
}

// checkpoint converts progress within this invocation into run totals.
func (g generation) checkpoint(rows, emitted int, last uint64, completed bool) store.Checkpoint {
	return store.Checkpoint{
		RunID:     g.runID,
		Emitted:   g.base.Emitted + emitted,
		Rows:      g.base.Rows + rows,
		Last:      last,
		Completed: completed,
	}
}

// newSource returns a sequential stream, or a sharded one when shards > 1.
// Either stops when ctx is done.
func newSource(ctx context.Context, rules wheel.RuleSet, start uint64, shards int) (generator.Source, func(), error) {
	if shards > 1 {
		p, err := generator.NewParallel(ctx, rules, start, shards)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				slog.Error("error closing parallel stream", "error", err)
			}
		}, nil
	}
	s, err := generator.New(rules, start)
	if err != nil {
		return nil, nil, err
	}
	return s.Bind(ctx), func() {}, nil
}

func reportGeneration(formatter *OutputFormatter, g generation, res output.Result) error {
	result := GenerateResult{
		RunID:       g.runID,
		Fingerprint: g.rules.Fingerprint(),
		Emitted:     res.Emitted,
		Rows:        res.Rows,
		Last:        res.Last,
		Exhausted:   res.Exhausted,
		Output:      g.out,
	}
	if result.Output == "" {
		result.Output = "stdout"
	}

	if g.out != "" {
		// Rows went to a file; the summary has stdout to itself.
		return formatter.Success(result)
	}
	formatter.VerboseLog("%s", result)
	return nil
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openStore(path string) (*store.Store, error) {
	slog.Debug("opening database", "path", path)
	return store.Open(path)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
