package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhailrojo/javascript-allonge-six/internal/journal"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

func TestGolden_ColourIsolation(t *testing.T) {
	scenario := loadTestScenario(t, "colour_isolation.yaml")
	require.NoError(t, RunWithGolden(t, scenario))
}

func TestGolden_BootOnce(t *testing.T) {
	scenario := loadTestScenario(t, "boot_once.yaml")
	require.NoError(t, RunWithGolden(t, scenario))
}

// TestTraceSnapshot_CanonicalShape pins the exact golden byte layout:
// top-level keys sort scenario < state < trace, record keys sort
// canonically, and there is no trailing newline.
func TestTraceSnapshot_CanonicalShape(t *testing.T) {
	result := NewResult()
	result.Trace = []journal.Event{
		{Kind: "call", Seq: 1, Name: "beep", Target: "x", Outcome: journal.OutcomeOK},
		{Kind: "execution", Seq: 2, Name: "beep", Target: "x"},
	}
	result.State = map[string]object.Record{
		"x": {"b": object.Int(2), "a": object.Int(1)},
	}

	snapshot := NewTraceSnapshot("tiny", result)
	assert.Equal(t, []string{"call:beep@x", "exec:beep@x"}, snapshot.Trace)

	data, err := snapshot.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"tiny","state":{"x":{"a":1,"b":2}},"trace":["call:beep@x","exec:beep@x"]}`,
		string(data))
}

func TestTraceSnapshot_EmptyRun(t *testing.T) {
	snapshot := NewTraceSnapshot("bare", NewResult())
	data, err := snapshot.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"scenario":"bare","state":{},"trace":[]}`, string(data))
}
