package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhailrojo/javascript-allonge-six/internal/journal"
	"github.com/mikhailrojo/javascript-allonge-six/internal/testutil"
	"github.com/mikhailrojo/javascript-allonge-six/mixin"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// seededContext builds an assertion context around an in-memory journal
// holding a small hand-written history: boot called twice on x (one
// execution, one suppressed) and once on y (failed).
func seededContext(t *testing.T) *AssertionContext {
	t.Helper()
	ctx := context.Background()

	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	calls := []journal.Call{
		{ID: "c1", Scenario: "seeded", Target: "x", Operation: "boot", Args: "[]", Result: "1", Outcome: journal.OutcomeOK, Seq: 1},
		{ID: "c2", Scenario: "seeded", Target: "x", Operation: "boot", Args: "[]", Result: `"undefined"`, Outcome: journal.OutcomeOK, Seq: 3},
		{ID: "c3", Scenario: "seeded", Target: "y", Operation: "boot", Args: "[]", Outcome: journal.OutcomeError, Error: "boom", Seq: 4},
	}
	for _, call := range calls {
		require.NoError(t, j.WriteCall(ctx, call))
	}
	_, inserted, err := j.WriteExecution(ctx, journal.Execution{
		CallID: "c1", Operation: "boot", Receiver: "x", Seq: 2,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	return &AssertionContext{Journal: j, Ctx: ctx, Scenario: "seeded"}
}

func TestAssertExecutionCount(t *testing.T) {
	actx := seededContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantFail  string
	}{
		{
			name:      "total matches",
			assertion: Assertion{Type: AssertExecutionCount, Operation: "boot", Count: 1},
		},
		{
			name:      "receiver scope matches",
			assertion: Assertion{Type: AssertExecutionCount, Operation: "boot", Receiver: "x", Count: 1},
		},
		{
			name:      "suppressed receiver has zero executions",
			assertion: Assertion{Type: AssertExecutionCount, Operation: "boot", Receiver: "y", Count: 0},
		},
		{
			name:      "mismatch fails",
			assertion: Assertion{Type: AssertExecutionCount, Operation: "boot", Count: 3},
			wantFail:  "boot executed 3 time(s) on any receiver",
		},
		{
			name:      "scoped mismatch names the receiver",
			assertion: Assertion{Type: AssertExecutionCount, Operation: "boot", Receiver: "x", Count: 2},
			wantFail:  "on receiver x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertExecutionCount(actx, tt.assertion, nil)
			if tt.wantFail == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantFail)
		})
	}
}

func TestAssertCallCount(t *testing.T) {
	actx := seededContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantFail  string
	}{
		{
			name:      "total counts suppressed and failed calls",
			assertion: Assertion{Type: AssertCallCount, Operation: "boot", Count: 3},
		},
		{
			name:      "target scope",
			assertion: Assertion{Type: AssertCallCount, Operation: "boot", Target: "x", Count: 2},
		},
		{
			name:      "mismatch fails",
			assertion: Assertion{Type: AssertCallCount, Operation: "boot", Target: "y", Count: 2},
			wantFail:  "boot called 2 time(s) on target y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertCallCount(actx, tt.assertion, nil)
			if tt.wantFail == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantFail)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := []journal.Event{
		{Kind: "application", Seq: 1, Name: "Bootable", Target: "x"},
		{Kind: "call", Seq: 2, Name: "boot", Target: "x", Outcome: journal.OutcomeOK},
		{Kind: "execution", Seq: 3, Name: "boot", Target: "x"},
		{Kind: "call", Seq: 4, Name: "boot", Target: "x", Outcome: journal.OutcomeOK},
		{Kind: "call", Seq: 5, Name: "boot", Target: "y", Outcome: journal.OutcomeError},
	}

	tests := []struct {
		name     string
		events   []string
		wantFail string
	}{
		{
			name: "full trace in order",
			events: []string{
				"apply:Bootable->x", "call:boot@x", "exec:boot@x", "call:boot@x", "call-failed:boot@y",
			},
		},
		{
			name:   "sparse subsequence",
			events: []string{"apply:Bootable->x", "call-failed:boot@y"},
		},
		{
			name:   "repeated identical events match distinct positions",
			events: []string{"call:boot@x", "call:boot@x"},
		},
		{
			name:   "empty expectation always passes",
			events: nil,
		},
		{
			name:     "wrong order fails",
			events:   []string{"call-failed:boot@y", "call:boot@x"},
			wantFail: `no match for "call:boot@x" after 1 matched`,
		},
		{
			name:     "absent event fails",
			events:   []string{"exec:boot@y"},
			wantFail: `no match for "exec:boot@y" after 0 matched`,
		},
		{
			name:     "more repeats than present fails",
			events:   []string{"call:boot@x", "call:boot@x", "call:boot@x"},
			wantFail: "after 2 matched",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Events: tt.events})
			if tt.wantFail == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantFail)
		})
	}
}

func TestAssertMembership(t *testing.T) {
	set, err := mixin.New(
		map[string]*object.Operation{
			"boot": object.NewOperation("boot", 0, func(recv object.Value, args []object.Value) (object.Value, error) {
				return object.Undefined{}, nil
			}),
		},
		nil,
		mixin.WithLabel("Bootable"),
		mixin.WithTagSource(testutil.NewSequentialTagSource("t")),
	)
	require.NoError(t, err)

	stamped := object.NewLabeled("stamped")
	_, err = mixin.Apply(set, stamped)
	require.NoError(t, err)
	plain := object.NewLabeled("plain")

	actx := &AssertionContext{
		Sets:    map[string]*mixin.BehaviorSet{"Bootable": set},
		Objects: map[string]*object.Object{"stamped": stamped, "plain": plain},
	}

	assert.NoError(t, assertMembership(actx, Assertion{
		Type: AssertMembership, Behavior: "Bootable", Object: "stamped", Member: boolPtr(true),
	}, nil))
	assert.NoError(t, assertMembership(actx, Assertion{
		Type: AssertMembership, Behavior: "Bootable", Object: "plain", Member: boolPtr(false),
	}, nil))

	err = assertMembership(actx, Assertion{
		Type: AssertMembership, Behavior: "Bootable", Object: "plain", Member: boolPtr(true),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain member of Bootable: true")

	err = assertMembership(actx, Assertion{
		Type: AssertMembership, Behavior: "Ghost", Object: "plain", Member: boolPtr(true),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown behavior "Ghost"`)

	err = assertMembership(actx, Assertion{
		Type: AssertMembership, Behavior: "Bootable", Object: "ghost", Member: boolPtr(true),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown object "ghost"`)
}

func TestAssertMemberPresent(t *testing.T) {
	obj := object.NewLabeled("x")
	require.NoError(t, obj.Set("visible", object.Int(1)))
	require.NoError(t, obj.Define("hidden", object.Property{
		Value:      object.Int(2),
		Enumerable: false,
		Writable:   true,
	}))

	actx := &AssertionContext{Objects: map[string]*object.Object{"x": obj}}

	tests := []struct {
		name      string
		assertion Assertion
		wantFail  string
	}{
		{
			name:      "present",
			assertion: Assertion{Type: AssertMemberPresent, Object: "x", Name: "visible", Present: boolPtr(true)},
		},
		{
			name:      "absent",
			assertion: Assertion{Type: AssertMemberPresent, Object: "x", Name: "ghost", Present: boolPtr(false)},
		},
		{
			name: "enumerable flag checked",
			assertion: Assertion{
				Type: AssertMemberPresent, Object: "x", Name: "hidden",
				Present: boolPtr(true), Enumerable: boolPtr(false),
			},
		},
		{
			name:      "presence mismatch",
			assertion: Assertion{Type: AssertMemberPresent, Object: "x", Name: "ghost", Present: boolPtr(true)},
			wantFail:  "x.ghost present: true",
		},
		{
			name: "enumerable mismatch",
			assertion: Assertion{
				Type: AssertMemberPresent, Object: "x", Name: "hidden",
				Present: boolPtr(true), Enumerable: boolPtr(true),
			},
			wantFail: "x.hidden enumerable: true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertMemberPresent(actx, tt.assertion, nil)
			if tt.wantFail == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantFail)
		})
	}
}

func TestAssertFinalState(t *testing.T) {
	obj := object.NewLabeled("x")
	require.NoError(t, obj.Set("colour", object.Record{
		"r": object.Int(255), "g": object.Int(0), "b": object.Int(0),
	}))
	require.NoError(t, obj.Set("boots", object.Int(2)))

	actx := &AssertionContext{Objects: map[string]*object.Object{"x": obj}}

	t.Run("subset match passes", func(t *testing.T) {
		err := assertFinalState(actx, Assertion{
			Type: AssertFinalState, Object: "x",
			Expect: map[string]interface{}{
				"colour": map[string]interface{}{"r": 255, "g": 0, "b": 0},
			},
		}, nil)
		assert.NoError(t, err)
	})

	t.Run("value mismatch fails", func(t *testing.T) {
		err := assertFinalState(actx, Assertion{
			Type: AssertFinalState, Object: "x",
			Expect: map[string]interface{}{"boots": 3},
		}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x.boots = 3")
	})

	t.Run("absent field fails", func(t *testing.T) {
		err := assertFinalState(actx, Assertion{
			Type: AssertFinalState, Object: "x",
			Expect: map[string]interface{}{"ghost": 1},
		}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field absent")
	})
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertExecutionCount,
		Expected: "boot executed 1 time(s) on receiver x",
		Actual:   "executed 2 time(s)",
		Trace: []journal.Event{
			{Kind: "call", Seq: 1, Name: "boot", Target: "x", Outcome: journal.OutcomeOK},
			{Kind: "execution", Seq: 2, Name: "boot", Target: "x"},
		},
	}

	want := "Assertion failed: execution_count\n" +
		"  Expected: boot executed 1 time(s) on receiver x\n" +
		"  Actual: executed 2 time(s)\n" +
		"\nFull trace:\n" +
		"  [1] call:boot@x\n" +
		"  [2] exec:boot@x\n"
	assert.Equal(t, want, err.Error())
}

func TestEvaluateAssertions(t *testing.T) {
	obj := object.NewLabeled("x")
	require.NoError(t, obj.Set("boots", object.Int(1)))
	actx := &AssertionContext{Objects: map[string]*object.Object{"x": obj}}

	t.Run("unknown type reports its index", func(t *testing.T) {
		result := NewResult()
		errs := EvaluateAssertions(result, []Assertion{{Type: "teleport_count"}}, actx)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], `assertion[0]: unknown assertion type "teleport_count"`)
	})

	t.Run("collects every failure", func(t *testing.T) {
		result := NewResult()
		errs := EvaluateAssertions(result, []Assertion{
			{Type: AssertFinalState, Object: "x", Expect: map[string]interface{}{"boots": 9}},
			{Type: AssertMemberPresent, Object: "x", Name: "boots", Present: boolPtr(false)},
			{Type: AssertFinalState, Object: "x", Expect: map[string]interface{}{"boots": 1}},
		}, actx)
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0], "x.boots = 9")
		assert.Contains(t, errs[1], "x.boots present: false")
	})
}
