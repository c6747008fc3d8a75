package journal

import (
	"path/filepath"
	"testing"
)

// createTestJournal creates a fresh on-disk journal for testing.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// createTestApplication creates an application record with minimal
// required fields.
func createTestApplication(id, scenario, behavior, target string, seq int64) Application {
	return Application{
		ID:        id,
		Scenario:  scenario,
		Behavior:  behavior,
		Tag:       "tag-" + behavior,
		Target:    target,
		Installed: []string{},
		Skipped:   []string{},
		Outcome:   OutcomeApplied,
		Seq:       seq,
	}
}

// createTestCall creates a call record with minimal required fields.
func createTestCall(id, scenario, target, operation string, seq int64) Call {
	return Call{
		ID:        id,
		Scenario:  scenario,
		Target:    target,
		Operation: operation,
		Args:      "[]",
		Result:    "null",
		Outcome:   OutcomeOK,
		Seq:       seq,
	}
}
