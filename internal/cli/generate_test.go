package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/primewheel/internal/store"
	"github.com/roach88/primewheel/internal/testutil"
	"github.com/roach88/primewheel/internal/wheel"
)

const defaultRules30 = "17 19 23 29 31 37 41 43 47 53\n" +
	"59 61 67 71 73 79 83 89 97 101\n" +
	"103 107 109 113 127 131 137 139 149 151\n"

// executeGenerate runs the generate command and returns stdout.
func executeGenerate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewGenerateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestGenerateDefaultRules(t *testing.T) {
	out, err := executeGenerate(t, "text", "--count", "30", "--per-line", "10")
	require.NoError(t, err)
	assert.Equal(t, defaultRules30, out)
}

func TestGenerateInlineRules(t *testing.T) {
	out, err := executeGenerate(t, "text", "-n", "6", "--rule", "2:0", "--rule", "3:0", "--start", "100", "--per-line", "4")
	require.NoError(t, err)
	assert.Equal(t, "101 103 107 109\n113 127\n", out)
}

func TestGenerateNoRulesFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []\ncount: 10\n"), 0644))

	out, err := executeGenerate(t, "text", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "2 3 5 7 11 13 17 19 23 29\n", out)
}

func TestGenerateFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.yaml")
	content := `
rules:
  - modulus: 2
    residue: 0
start: 100
count: 5
per_line: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	out, err := executeGenerate(t, "text", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "101 103\n107 109\n113\n", out)

	out, err = executeGenerate(t, "text", "--config", path, "--count", "3", "--per-line", "12")
	require.NoError(t, err)
	assert.Equal(t, "101 103 107\n", out)
}

func TestGenerateCUEConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.cue")
	content := `
rules: [{modulus: 2, residue: 0}, {modulus: 3, residue: 0}]
count: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	out, err := executeGenerate(t, "text", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "5 7 11 13\n", out)
}

func TestGenerateInvalidRule(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"residue equals modulus", []string{"--rule", "4:4"}},
		{"modulus below two", []string{"--rule", "1:0"}},
		{"negative residue", []string{"--rule", "5:-1"}},
		{"not a rule", []string{"--rule", "seven"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeGenerate(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid rules")
			assert.Empty(t, out)
		})
	}
}

func TestGenerateInvalidRuleJSON(t *testing.T) {
	out, err := executeGenerate(t, "json", "--rule", "6:6")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalidRule, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "INVALID_RULE")
}

func TestGenerateInvalidRuleFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {modulus: 4, residue: 4}\n"), 0644))

	out, err := executeGenerate(t, "json", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeInvalidRule, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid rules")
	assert.Contains(t, resp.Error.Message, "rules[0]")
}

func TestGenerateMissingConfig(t *testing.T) {
	_, err := executeGenerate(t, "text", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateInvalidShards(t *testing.T) {
	_, err := executeGenerate(t, "text", "--shards", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shards must be >= 1")
}

func TestGenerateToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "primes.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale contents\n"), 0644))

	out, err := executeGenerate(t, "text", "--count", "30", "--per-line", "10", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 30 primes in 3 rows")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, defaultRules30, string(data))
}

func TestGenerateToFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primes.txt")

	out, err := executeGenerate(t, "json", "--count", "30", "--per-line", "10", "--out", path)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 30, resp.Data.Emitted)
	assert.Equal(t, 3, resp.Data.Rows)
	assert.Equal(t, uint64(151), resp.Data.Last)
	assert.False(t, resp.Data.Exhausted)
	assert.Len(t, resp.Data.Fingerprint, 64)
}

func TestGenerateShardsMatchSequential(t *testing.T) {
	seq, err := executeGenerate(t, "text", "--count", "500", "--start", "1000000")
	require.NoError(t, err)

	for _, shards := range []string{"2", "4", "7"} {
		par, err := executeGenerate(t, "text", "--count", "500", "--start", "1000000", "--shards", shards)
		require.NoError(t, err)
		assert.Equal(t, seq, par, "shards=%s", shards)
	}
}

func TestGenerateRecordsRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	outPath := filepath.Join(dir, "primes.txt")

	out, err := executeGenerate(t, "json", "--count", "25", "--per-line", "10",
		"--out", outPath, "--db", dbPath, "--name", "first run")
	require.NoError(t, err)

	var resp struct {
		Data GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.RunID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.GetRun(context.Background(), resp.Data.RunID)
	require.NoError(t, err)
	assert.Equal(t, "first run", rec.Run.Name)
	assert.Equal(t, 25, rec.Run.Target)
	assert.Equal(t, 10, rec.Run.PerLine)
	assert.Equal(t, outPath, rec.Run.Output)
	assert.Equal(t, resp.Data.Fingerprint, rec.Run.Fingerprint)

	require.NotNil(t, rec.Checkpoint)
	assert.True(t, rec.Checkpoint.Completed)
	assert.Equal(t, 25, rec.Checkpoint.Emitted)
	assert.Equal(t, 3, rec.Checkpoint.Rows)
	assert.Equal(t, uint64(127), rec.Checkpoint.Last)
	assert.Equal(t, 0, rec.Remaining())
}

func TestGenerationStopsAfterRowWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	rules := wheel.DefaultRules()
	run, err := store.NewRun("cancelled", rules, 2, 100, 10, "")
	require.NoError(t, err)
	require.NoError(t, st.CreateRun(context.Background(), run))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel as the first row reaches the output.
	buf := &cancelOnWrite{cancel: cancel}
	cmd := NewGenerateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)

	g := generation{rules: rules, start: 2, count: 100, perLine: 10, shards: 1, store: st, runID: run.ID}
	_, err = g.execute(ctx, cmd)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "17 19 23 29 31 37 41 43 47 53\n", buf.String())

	rec, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Checkpoint)
	assert.False(t, rec.Checkpoint.Completed)
	assert.Equal(t, 10, rec.Checkpoint.Emitted)
	assert.Equal(t, uint64(53), rec.Checkpoint.Last)
	assert.Equal(t, uint64(54), rec.ResumeFrom())
}

func TestGenerateRunIDsFromGenerator(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	ids := testutil.NewSequentialIDs("gen")

	for _, count := range []string{"3", "4"} {
		cmd := newGenerateCommand(&GenerateOptions{RootOptions: &RootOptions{Format: "text"}, IDs: ids})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--count", count, "--db", dbPath})
		require.NoError(t, cmd.Execute())
	}

	buf := &bytes.Buffer{}
	cmd := NewRunsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "gen-0001", resp.Data[0].ID)
	assert.Equal(t, 3, resp.Data[0].Emitted)
	assert.Equal(t, "gen-0002", resp.Data[1].ID)
	assert.Equal(t, uint64(29), resp.Data[1].Last)
	assert.True(t, resp.Data[1].Completed)
}

// cancelOnWrite records output and cancels a context on the first write.
type cancelOnWrite struct {
	bytes.Buffer
	cancel context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	w.cancel()
	return w.Buffer.Write(p)
}

func TestGenerationCancelledWhileSearching(t *testing.T) {
	// After 3 the rules leave no primes, so generation can only end by
	// cancellation.
	rules := wheel.RuleSet{{Modulus: 6, Residue: 1}, {Modulus: 6, Residue: 5}}

	for _, shards := range []int{1, 2} {
		t.Run("", func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			buf := &bytes.Buffer{}
			cmd := NewGenerateCommand(&RootOptions{Format: "text"})
			cmd.SetOut(buf)

			g := generation{rules: rules, start: 2, count: 5, perLine: 1, shards: shards}
			done := make(chan error, 1)
			go func() {
				_, err := g.execute(ctx, cmd)
				done <- err
			}()

			select {
			case err := <-done:
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			case <-time.After(5 * time.Second):
				t.Fatalf("generation with %d shards did not stop", shards)
			}
			assert.Equal(t, "2\n3\n", buf.String())
		})
	}
}
