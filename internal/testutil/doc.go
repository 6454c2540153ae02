// Package testutil provides shared test helpers and fixtures for runguard.
//
// Philosophy:
// - Prefer real SQLite (no mocks) for correctness.
// - Keep helpers small, composable, and deterministic.
// - Register cleanup via t.Cleanup so tests stay leak-free.
//
// Most packages should start with:
//
//	journal := testutil.NewTestJournal(t)
//	record := testutil.MakeRecord(t, journal, testutil.RecordWithCommand("rm -rf ./build"))
package testutil
