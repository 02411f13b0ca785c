package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/primewheel/internal/wheel"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run describes a generation request.
type Run struct {
	ID          string
	Name        string
	Fingerprint string
	Rules       wheel.RuleSet
	Start       uint64
	Target      int
	PerLine     int
	Output      string
	CreatedAt   time.Time
}

// Checkpoint is the progress of a run after its last flushed row.
type Checkpoint struct {
	RunID     string
	Emitted   int
	Rows      int
	Last      uint64
	Completed bool
}

// RunRecord pairs a run with its latest checkpoint (nil if none written).
type RunRecord struct {
	Run        Run
	Checkpoint *Checkpoint
}

// Remaining returns how many primes the run still needs.
func (r RunRecord) Remaining() int {
	if r.Checkpoint == nil {
		return r.Run.Target
	}
	return max(r.Run.Target-r.Checkpoint.Emitted, 0)
}

// ResumeFrom returns the start value for continuing the run.
func (r RunRecord) ResumeFrom() uint64 {
	if r.Checkpoint == nil || r.Checkpoint.Emitted == 0 {
		return r.Run.Start
	}
	return r.Checkpoint.Last + 1
}

// IDGenerator issues run IDs. IDs must sort in creation order, since
// ListRuns orders by ID.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDv7Generator issues time-ordered UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewRun fills in a UUIDv7 ID, normalized name, fingerprint and creation time.
func NewRun(name string, rules wheel.RuleSet, start uint64, target, perLine int, output string) (Run, error) {
	return NewRunWithIDs(UUIDv7Generator{}, name, rules, start, target, perLine, output)
}

// NewRunWithIDs is NewRun with the ID taken from ids.
func NewRunWithIDs(ids IDGenerator, name string, rules wheel.RuleSet, start uint64, target, perLine int, output string) (Run, error) {
	id, err := ids.NewID()
	if err != nil {
		return Run{}, fmt.Errorf("generate run id: %w", err)
	}
	return Run{
		ID:          id,
		Name:        NormalizeName(name),
		Fingerprint: rules.Fingerprint(),
		Rules:       rules.Clone(),
		Start:       start,
		Target:      target,
		PerLine:     perLine,
		Output:      output,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NormalizeName returns name in Unicode NFC so that visually identical
// labels compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// CreateRun inserts a run record.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, fingerprint, rules, start_value, target, per_line, output, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		NormalizeName(run.Name),
		run.Fingerprint,
		string(run.Rules.CanonicalJSON()),
		strconv.FormatUint(run.Start, 10),
		run.Target,
		run.PerLine,
		run.Output,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// SaveCheckpoint records progress for a run, replacing any earlier checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	completed := 0
	if cp.Completed {
		completed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, emitted, rows, last_value, completed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			emitted = excluded.emitted,
			rows = excluded.rows,
			last_value = excluded.last_value,
			completed = excluded.completed,
			updated_at = excluded.updated_at
	`,
		cp.RunID,
		cp.Emitted,
		cp.Rows,
		strconv.FormatUint(cp.Last, 10),
		completed,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

const selectRunRecord = `
	SELECT r.id, r.name, r.fingerprint, r.rules, r.start_value, r.target, r.per_line, r.output, r.created_at,
	       c.emitted, c.rows, c.last_value, c.completed
	FROM runs r
	LEFT JOIN checkpoints c ON c.run_id = r.id
`

// GetRun returns a run and its checkpoint.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, selectRunRecord+` WHERE r.id = ?`, id)
	rec, err := scanRunRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// ListRuns returns every run in creation order.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRunRecord+` ORDER BY r.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(row rowScanner) (*RunRecord, error) {
	var (
		rec       RunRecord
		rulesJSON string
		startText string
		createdAt string
		emitted   sql.NullInt64
		rowCount  sql.NullInt64
		lastText  sql.NullString
		completed sql.NullInt64
	)
	err := row.Scan(
		&rec.Run.ID, &rec.Run.Name, &rec.Run.Fingerprint, &rulesJSON, &startText,
		&rec.Run.Target, &rec.Run.PerLine, &rec.Run.Output, &createdAt,
		&emitted, &rowCount, &lastText, &completed,
	)
	if err != nil {
		return nil, err
	}

	rec.Run.Rules, err = unmarshalRules(rulesJSON)
	if err != nil {
		return nil, err
	}
	rec.Run.Start, err = strconv.ParseUint(startText, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start_value %q: %w", startText, err)
	}
	rec.Run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	if emitted.Valid {
		last, err := strconv.ParseUint(lastText.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last_value %q: %w", lastText.String, err)
		}
		rec.Checkpoint = &Checkpoint{
			RunID:     rec.Run.ID,
			Emitted:   int(emitted.Int64),
			Rows:      int(rowCount.Int64),
			Last:      last,
			Completed: completed.Int64 != 0,
		}
	}
	return &rec, nil
}

// unmarshalRules decodes the canonical [[modulus,residue],...] form.
func unmarshalRules(data string) (wheel.RuleSet, error) {
	var pairs [][2]uint64
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	rules := make(wheel.RuleSet, len(pairs))
	for i, p := range pairs {
		rules[i] = wheel.Rule{Modulus: p[0], Residue: p[1]}
	}
	return rules, nil
}
