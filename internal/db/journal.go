package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runguard/runguard/internal/core"
)

// ErrInvocationNotFound is returned when no journal entry matches.
var ErrInvocationNotFound = errors.New("invocation not found")

// ErrAmbiguousID is returned when an id prefix matches several entries.
var ErrAmbiguousID = errors.New("id prefix matches multiple invocations")

// Record is one journaled invocation: what was asked, how it was judged,
// and how it ended. Output contents are not journaled, only their sizes.
type Record struct {
	ID            string                `json:"id"`
	CreatedAt     time.Time             `json:"created_at"`
	Command       string                `json:"command"`
	RequiresShell bool                  `json:"requires_shell"`
	Risk          core.RiskLevel        `json:"risk"`
	Matches       []core.MatchedPattern `json:"matches,omitempty"`
	Decision      core.Decision         `json:"decision"`
	Outcome       core.Outcome          `json:"outcome"`
	ExitCode      *int                  `json:"exit_code,omitempty"`
	Signal        int                   `json:"signal,omitempty"`
	DurationMS    int64                 `json:"duration_ms"`
	StdoutBytes   int                   `json:"stdout_bytes"`
	StderrBytes   int                   `json:"stderr_bytes"`
	Truncated     bool                  `json:"truncated"`
	Cwd           string                `json:"cwd,omitempty"`
}

// NewRecord builds a journal record from a classified profile and its result.
func NewRecord(profile *core.CommandProfile, res *core.ExecutionResult, cwd string) *Record {
	return &Record{
		ID:            res.ID,
		Command:       profile.Raw,
		RequiresShell: profile.RequiresShell,
		Risk:          profile.Risk,
		Matches:       profile.Matches,
		Decision:      res.Decision,
		Outcome:       res.Outcome,
		ExitCode:      res.ExitCode,
		Signal:        res.Signal,
		DurationMS:    res.Elapsed.Milliseconds(),
		StdoutBytes:   len(res.Stdout),
		StderrBytes:   len(res.Stderr),
		Truncated:     res.StdoutTruncated || res.StderrTruncated,
		Cwd:           cwd,
	}
}

const recordColumns = `id, created_at, command, requires_shell, risk, matches, decision, outcome,
	exit_code, signal, duration_ms, stdout_bytes, stderr_bytes, truncated, cwd`

// AppendInvocation inserts a record. A missing ID or CreatedAt is filled in.
func (db *DB) AppendInvocation(r *Record) error {
	if r.Command == "" {
		return fmt.Errorf("command is required")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	matches, err := json.Marshal(r.Matches)
	if err != nil {
		return fmt.Errorf("encoding matches: %w", err)
	}

	var exitCode, signal sql.NullInt64
	if r.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*r.ExitCode), Valid: true}
	}
	if r.Signal != 0 {
		signal = sql.NullInt64{Int64: int64(r.Signal), Valid: true}
	}

	_, err = db.Exec(`
		INSERT INTO invocations (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Command, r.RequiresShell,
		string(r.Risk), string(matches), string(r.Decision), string(r.Outcome),
		exitCode, signal, r.DurationMS, r.StdoutBytes, r.StderrBytes, r.Truncated, r.Cwd)
	if err != nil {
		return fmt.Errorf("appending invocation: %w", err)
	}

	return nil
}

// GetInvocation retrieves a record by exact id, falling back to unique
// prefix lookup so short ids work on the command line.
func (db *DB) GetInvocation(id string) (*Record, error) {
	row := db.QueryRow(`
		SELECT `+recordColumns+`
		FROM invocations WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrInvocationNotFound) {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM invocations WHERE id LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT 2
	`, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("querying invocation by prefix: %w", err)
	}
	defer rows.Close()

	matches, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrInvocationNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousID
	}
}

// ListOptions filter and bound ListInvocations.
type ListOptions struct {
	// Limit caps the number of records returned; 0 means 50.
	Limit int
	// Risk keeps only records at this level when non-empty.
	Risk core.RiskLevel
	// Outcome keeps only records with this outcome when non-empty.
	Outcome core.Outcome
	// Since keeps only records created at or after this time when non-zero.
	Since time.Time
	// FailedOnly keeps only records whose outcome is not success or dry_run.
	FailedOnly bool
}

// ListInvocations returns journal entries, newest first.
func (db *DB) ListInvocations(opts ListOptions) ([]*Record, error) {
	where := []string{"1=1"}
	args := []any{}

	if opts.Risk != "" {
		where = append(where, "risk = ?")
		args = append(args, string(opts.Risk))
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(opts.Outcome))
	}
	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC().Format(time.RFC3339))
	}
	if opts.FailedOnly {
		where = append(where, "outcome NOT IN (?, ?)")
		args = append(args, string(core.OutcomeSuccess), string(core.OutcomeDryRun))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM invocations
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// SearchInvocations returns entries whose command contains substr, newest first.
func (db *DB) SearchInvocations(substr string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM invocations
		WHERE command LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id
		LIMIT ?
	`, "%"+escapeLike(substr)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching invocations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// PruneInvocations deletes entries older than keepDays and returns how many
// were removed. keepDays <= 0 removes nothing.
func (db *DB) PruneInvocations(keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Format(time.RFC3339)
	result, err := db.Exec(`DELETE FROM invocations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning invocations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}

// CountInvocations returns the number of journal entries.
func (db *DB) CountInvocations() (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM invocations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting invocations: %w", err)
	}
	return count, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanInto scans one row's columns into a record.
func scanInto(row rowScanner, r *Record) error {
	var createdAt, matches string
	var exitCode, signal sql.NullInt64

	err := row.Scan(&r.ID, &createdAt, &r.Command, &r.RequiresShell, &r.Risk, &matches,
		&r.Decision, &r.Outcome, &exitCode, &signal, &r.DurationMS,
		&r.StdoutBytes, &r.StderrBytes, &r.Truncated, &r.Cwd)
	if err != nil {
		return err
	}

	r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	if matches != "" {
		if err := json.Unmarshal([]byte(matches), &r.Matches); err != nil {
			return fmt.Errorf("decoding matches: %w", err)
		}
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		r.ExitCode = &code
	}
	if signal.Valid {
		r.Signal = int(signal.Int64)
	}
	return nil
}

// scanRecord scans a single invocation row.
func scanRecord(row *sql.Row) (*Record, error) {
	r := &Record{}
	if err := scanInto(row, r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvocationNotFound
		}
		return nil, fmt.Errorf("scanning invocation: %w", err)
	}
	return r, nil
}

// scanRecords scans multiple invocation rows.
func scanRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		r := &Record{}
		if err := scanInto(rows, r); err != nil {
			return nil, fmt.Errorf("scanning invocation row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invocations: %w", err)
	}
	return records, nil
}
