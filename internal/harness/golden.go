package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// TraceSnapshot captures a scenario execution for golden comparison: the
// compact trace plus each object's final own enumerable state. Canonical
// JSON serialization keeps the bytes deterministic across runs.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []string
	State        map[string]object.Record
}

// NewTraceSnapshot builds a snapshot from a finished result.
func NewTraceSnapshot(scenarioName string, result *Result) TraceSnapshot {
	trace := make([]string, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = event.String()
	}
	return TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        trace,
		State:        result.State,
	}
}

// toCanonicalValue converts the snapshot to an object value so the
// canonical marshaller can serialize it with sorted keys.
func (s *TraceSnapshot) toCanonicalValue() object.Value {
	trace := make(object.List, len(s.Trace))
	for i, form := range s.Trace {
		trace[i] = object.String(form)
	}

	state := make(object.Record, len(s.State))
	for name, record := range s.State {
		state[name] = record
	}

	return object.Record{
		"scenario": object.String(s.ScenarioName),
		"trace":    trace,
		"state":    state,
	}
}

// CanonicalJSON serializes the snapshot as canonical JSON, the exact
// bytes golden files hold.
func (s *TraceSnapshot) CanonicalJSON() ([]byte, error) {
	return object.MarshalCanonical(s.toCanonicalValue())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for expected trace and state;
// any drift in event ordering, suppression behavior, or final state shows
// up as a byte diff.
//
// Returns error if scenario execution fails. Trace mismatches fail the
// test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) error {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result against a golden file.
// Useful when the test needs the result for further assertions beyond the
// golden comparison.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	data, err := snapshot.CanonicalJSON()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
