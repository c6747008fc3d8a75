// Package harness provides conformance testing for behavior declarations.
//
// The harness compiles CUE behavior declarations into live behavior sets,
// applies them to scenario objects, runs a flow of calls, and validates
// the resulting journal trace and final object state as executable
// contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	behaviors:
//	  - path/to/behavior.cue
//	objects:
//	  - name: x
//	  - name: frozen
//	    sealed: true
//	flow:
//	  - apply: Coloured
//	    to: x
//	  - apply: Coloured
//	    to: frozen
//	    expect_error: INVALID_TARGET
//	  - invoke: setColourRGB
//	    on: x
//	    args: [{ r: 255, g: 0, b: 0 }]
//	    expect: { r: 255, g: 0, b: 0 }
//	  - check: Coloured
//	    of: x
//	    expect: true
//	assertions:
//	  - type: execution_count
//	    operation: setColourRGB
//	    receiver: x
//	    count: 1
//	  - type: final_state
//	    object: x
//	    expect: { colour: { r: 255, g: 0, b: 0 } }
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - execution_count: Verifies an operation's body ran exactly N times
//   - call_count: Verifies an operation was called exactly N times,
//     counting attempts a policy suppressed
//   - trace_order: Verifies events appear in the trace in order
//   - membership: Verifies an object's membership verdict for a behavior
//   - member_present: Verifies an object owns (or lacks) a member, with
//     an optional enumerability check
//   - final_state: Verifies an object's own enumerable fields
//
// The split between call_count and execution_count is what makes
// decoration policies observable: a run_at_most_once operation called
// four times journals four calls and one execution.
//
// # Deterministic Testing
//
// All scenarios execute with a deterministic sequence clock and
// deterministic journal row IDs to ensure reproducible results and golden
// snapshot comparison.
//
// The harness uses:
//   - A fresh journal.Clock per run (injectable via WithClock)
//   - In-memory SQLite journal (isolated per run)
//   - Canonical JSON for every value comparison and golden byte
package harness
