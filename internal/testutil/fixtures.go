package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/runguard/runguard/internal/core"
	"github.com/runguard/runguard/internal/db"
)

// RecordOption customizes a test journal record.
type RecordOption func(*db.Record)

// MakeRecord creates and inserts a journal record with sane defaults: a
// safe command that ran to a clean exit.
func MakeRecord(t *testing.T, journal *db.DB, opts ...RecordOption) *db.Record {
	t.Helper()

	zero := 0
	r := &db.Record{
		ID:         "inv-" + randHex(8),
		CreatedAt:  time.Now().UTC(),
		Command:    "echo " + randHex(4),
		Risk:       core.RiskSafe,
		Decision:   core.DecisionAuto,
		Outcome:    core.OutcomeSuccess,
		ExitCode:   &zero,
		DurationMS: 12,
	}
	for _, opt := range opts {
		opt(r)
	}
	RequireNoError(t, journal.AppendInvocation(r), "append invocation")
	return r
}

// RecordWithCommand sets the raw command text.
func RecordWithCommand(raw string) RecordOption {
	return func(r *db.Record) { r.Command = raw }
}

// RecordWithRisk sets the risk level.
func RecordWithRisk(risk core.RiskLevel) RecordOption {
	return func(r *db.Record) { r.Risk = risk }
}

// RecordWithDecision sets the gate decision.
func RecordWithDecision(d core.Decision) RecordOption {
	return func(r *db.Record) { r.Decision = d }
}

// RecordWithOutcome sets the outcome and clears the default exit code for
// outcomes where no process ran.
func RecordWithOutcome(o core.Outcome) RecordOption {
	return func(r *db.Record) {
		r.Outcome = o
		switch o {
		case core.OutcomeSuccess:
		case core.OutcomeNonZeroExit:
			one := 1
			r.ExitCode = &one
		default:
			r.ExitCode = nil
		}
	}
}

// RecordWithExitCode sets an explicit exit code.
func RecordWithExitCode(code int) RecordOption {
	return func(r *db.Record) { r.ExitCode = &code }
}

// RecordWithCreatedAt overrides the creation timestamp, for retention and
// ordering tests.
func RecordWithCreatedAt(at time.Time) RecordOption {
	return func(r *db.Record) { r.CreatedAt = at.UTC() }
}

// RecordWithCwd sets the working directory.
func RecordWithCwd(cwd string) RecordOption {
	return func(r *db.Record) { r.Cwd = cwd }
}

// RecordWithMatches sets the matched patterns.
func RecordWithMatches(matches ...core.MatchedPattern) RecordOption {
	return func(r *db.Record) { r.Matches = matches }
}

// randHex returns a cryptographically random hex string for unique test IDs.
func randHex(n int) string {
	b := make([]byte, (n+1)/2) // Each byte produces 2 hex chars
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)[:n]
}
