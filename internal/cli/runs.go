package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/primewheel/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Rules       string    `json:"rules"`
	Fingerprint string    `json:"fingerprint"`
	Start       uint64    `json:"start"`
	Target      int       `json:"target"`
	Emitted     int       `json:"emitted"`
	Last        uint64    `json:"last,omitempty"`
	Completed   bool      `json:"completed"`
	Output      string    `json:"output,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunList prints as an aligned table in text mode.
type RunList []RunSummary

func (l RunList) String() string {
	if len(l) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROGRESS\tLAST\tSTATUS\tOUTPUT")
	for _, r := range l {
		status := "incomplete"
		if r.Completed {
			status = "complete"
		}
		out := r.Output
		if out == "" {
			out = "stdout"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\t%s\n", r.ID, r.Name, r.Emitted, r.Target, r.Last, status, out)
	}
	_ = tw.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded generation runs",
		Long: `List the runs recorded with "generate --db", oldest first, with their
progress and completion status.

Example:
  primewheel runs --db runs.db
  primewheel runs --db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	records, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	list := make(RunList, 0, len(records))
	for _, rec := range records {
		list = append(list, summarizeRun(rec))
	}
	return formatter.Success(list)
}

func summarizeRun(rec store.RunRecord) RunSummary {
	s := RunSummary{
		ID:          rec.Run.ID,
		Name:        rec.Run.Name,
		Rules:       rec.Run.Rules.String(),
		Fingerprint: rec.Run.Fingerprint,
		Start:       rec.Run.Start,
		Target:      rec.Run.Target,
		Output:      rec.Run.Output,
		CreatedAt:   rec.Run.CreatedAt,
	}
	if cp := rec.Checkpoint; cp != nil {
		s.Emitted = cp.Emitted
		s.Last = cp.Last
		s.Completed = cp.Completed
	}
	return s
}
