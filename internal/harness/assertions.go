package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mikhailrojo/javascript-allonge-six/internal/journal"
	"github.com/mikhailrojo/javascript-allonge-six/mixin"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []journal.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event.String())
	}

	return buf.String()
}

// AssertionContext provides journal and live-object access to assertions.
// Count assertions query the journal; membership, member_present, and
// final_state inspect the live objects the flow just acted on.
type AssertionContext struct {
	Journal  *journal.Journal
	Ctx      context.Context
	Scenario string
	Sets     map[string]*mixin.BehaviorSet
	Objects  map[string]*object.Object
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertExecutionCount:
			err = assertExecutionCount(actx, assertion, result.Trace)
		case AssertCallCount:
			err = assertCallCount(actx, assertion, result.Trace)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertMembership:
			err = assertMembership(actx, assertion, result.Trace)
		case AssertMemberPresent:
			err = assertMemberPresent(actx, assertion, result.Trace)
		case AssertFinalState:
			err = assertFinalState(actx, assertion, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertExecutionCount checks how many times an operation's body actually
// ran, optionally narrowed to one receiver. Suppressed calls never reach
// the body, so this is the count policies are judged by.
func assertExecutionCount(actx *AssertionContext, assertion Assertion, trace []journal.Event) error {
	got, err := actx.Journal.CountExecutions(actx.Ctx, actx.Scenario, assertion.Operation, assertion.Receiver)
	if err != nil {
		return fmt.Errorf("execution_count: %w", err)
	}
	if got != assertion.Count {
		scope := "any receiver"
		if assertion.Receiver != "" {
			scope = "receiver " + assertion.Receiver
		}
		return &AssertionError{
			Type:     AssertExecutionCount,
			Expected: fmt.Sprintf("%s executed %d time(s) on %s", assertion.Operation, assertion.Count, scope),
			Actual:   fmt.Sprintf("executed %d time(s)", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertCallCount checks how many times an operation was called,
// suppressed attempts included, optionally narrowed to one target.
func assertCallCount(actx *AssertionContext, assertion Assertion, trace []journal.Event) error {
	got, err := actx.Journal.CountCalls(actx.Ctx, actx.Scenario, assertion.Operation, assertion.Target)
	if err != nil {
		return fmt.Errorf("call_count: %w", err)
	}
	if got != assertion.Count {
		scope := "any target"
		if assertion.Target != "" {
			scope = "target " + assertion.Target
		}
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%s called %d time(s) on %s", assertion.Operation, assertion.Count, scope),
			Actual:   fmt.Sprintf("called %d time(s)", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the expected events appear in the trace in
// the given order. Events don't need to be consecutive, and the same
// compact form may legitimately repeat (the same call made twice), so
// this is a subsequence scan rather than a first-position comparison.
func assertTraceOrder(trace []journal.Event, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Events) && event.String() == assertion.Events[next] {
			next++
		}
	}
	if next < len(assertion.Events) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("events in order: %v", assertion.Events),
			Actual:   fmt.Sprintf("no match for %q after %d matched", assertion.Events[next], next),
			Trace:    trace,
		}
	}
	return nil
}

// assertMembership checks an object's membership verdict for a behavior.
// Membership is a capability tag query against the live object, not a
// journal lookup; a structural twin that was never stamped reads false.
func assertMembership(actx *AssertionContext, assertion Assertion, trace []journal.Event) error {
	set, ok := actx.Sets[assertion.Behavior]
	if !ok {
		return fmt.Errorf("membership: unknown behavior %q", assertion.Behavior)
	}
	obj, ok := actx.Objects[assertion.Object]
	if !ok {
		return fmt.Errorf("membership: unknown object %q", assertion.Object)
	}

	got := set.MembershipCheck(obj)
	if got != *assertion.Member {
		return &AssertionError{
			Type:     AssertMembership,
			Expected: fmt.Sprintf("%s member of %s: %v", assertion.Object, assertion.Behavior, *assertion.Member),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertMemberPresent checks whether an object owns a member, and
// optionally that member's enumerable flag. Installed operations are
// non-enumerable, so scenarios use this to confirm an install left the
// object's visible surface untouched.
func assertMemberPresent(actx *AssertionContext, assertion Assertion, trace []journal.Event) error {
	obj, ok := actx.Objects[assertion.Object]
	if !ok {
		return fmt.Errorf("member_present: unknown object %q", assertion.Object)
	}

	prop, present := obj.Own(assertion.Name)
	if present != *assertion.Present {
		return &AssertionError{
			Type:     AssertMemberPresent,
			Expected: fmt.Sprintf("%s.%s present: %v", assertion.Object, assertion.Name, *assertion.Present),
			Actual:   fmt.Sprintf("present: %v", present),
			Trace:    trace,
		}
	}
	if present && assertion.Enumerable != nil && prop.Enumerable != *assertion.Enumerable {
		return &AssertionError{
			Type:     AssertMemberPresent,
			Expected: fmt.Sprintf("%s.%s enumerable: %v", assertion.Object, assertion.Name, *assertion.Enumerable),
			Actual:   fmt.Sprintf("enumerable: %v", prop.Enumerable),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks an object's own enumerable fields against
// expected values. Subset match: only the named fields are compared, by
// canonical JSON, so structurally equal records always agree.
func assertFinalState(actx *AssertionContext, assertion Assertion, trace []journal.Event) error {
	obj, ok := actx.Objects[assertion.Object]
	if !ok {
		return fmt.Errorf("final_state: unknown object %q", assertion.Object)
	}

	snapshot := obj.Snapshot()
	for _, key := range sortedKeys(assertion.Expect) {
		want, err := convertValue(assertion.Expect[key])
		if err != nil {
			return fmt.Errorf("final_state: field %q: %w", key, err)
		}
		got, present := snapshot[key]
		if !present {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %s", assertion.Object, key, canonicalOrRaw(want)),
				Actual:   "field absent",
				Trace:    trace,
			}
		}
		wantJSON, err := object.MarshalCanonical(want)
		if err != nil {
			return fmt.Errorf("final_state: field %q: %w", key, err)
		}
		gotJSON, err := object.MarshalCanonical(got)
		if err != nil {
			return fmt.Errorf("final_state: field %q not comparable: %w", key, err)
		}
		if string(wantJSON) != string(gotJSON) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %s", assertion.Object, key, wantJSON),
				Actual:   string(gotJSON),
				Trace:    trace,
			}
		}
	}
	return nil
}

// sortedKeys returns map keys in sorted order so comparison failures
// report deterministically.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
