package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios build behavior sets from CUE declarations, apply them to a cast
// of objects, run a flow of calls, and assert on the resulting trace and
// final object state.
type Scenario struct {
	// Name uniquely identifies this scenario. It scopes every journal row
	// the run writes.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Behaviors lists paths to CUE behavior declaration files.
	// Paths are relative to the scenario file location.
	Behaviors []string `yaml:"behaviors"`

	// Objects declares the objects the flow acts on. Each starts empty
	// apart from its declared fields.
	Objects []ObjectDecl `yaml:"objects"`

	// Flow contains the main test flow: behavior applications, operation
	// calls, and membership checks, each with optional expectations.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: execution_count, call_count, trace_order,
	// membership, member_present, final_state.
	Assertions []Assertion `yaml:"assertions"`
}

// ObjectDecl declares one object in the scenario's cast.
type ObjectDecl struct {
	// Name identifies the object in flow steps and assertions, and labels
	// its journal rows.
	Name string `yaml:"name"`

	// Sealed marks the object non-extensible before the flow starts.
	// Applying a behavior to a sealed object fails with INVALID_TARGET.
	Sealed bool `yaml:"sealed,omitempty"`

	// Fields pre-populates own enumerable data members. Used to stage
	// first-definition-wins conflicts: a truthy field shadows an incoming
	// operation of the same name.
	Fields map[string]interface{} `yaml:"fields,omitempty"`
}

// FlowStep represents one step in the flow. Exactly one of Apply, Invoke,
// or Check must be set; the other fields qualify that mode.
type FlowStep struct {
	// Apply names a behavior to apply; To names the target object.
	Apply string `yaml:"apply,omitempty"`
	To    string `yaml:"to,omitempty"`

	// Invoke names an operation to call. On names the receiver object;
	// leave it empty and set From (a behavior name) instead to invoke the
	// behavior's operation with no receiver at all.
	Invoke string        `yaml:"invoke,omitempty"`
	On     string        `yaml:"on,omitempty"`
	From   string        `yaml:"from,omitempty"`
	Args   []interface{} `yaml:"args,omitempty"`

	// Check names a behavior for a membership query; Of names the object.
	Check string `yaml:"check,omitempty"`
	Of    string `yaml:"of,omitempty"`

	// Expect is the expected value: the call result for invoke steps, the
	// membership verdict (a bool) for check steps. The whole value must
	// match; subset semantics do not apply here.
	Expect interface{} `yaml:"expect,omitempty"`

	// ExpectUndefined asserts the call returned the undefined value.
	// YAML null cannot express this since null is rejected as a value.
	ExpectUndefined bool `yaml:"expect_undefined,omitempty"`

	// ExpectError is the expected error code (e.g. "INVALID_TARGET",
	// "MISSING_ARGUMENTS"). When set, the step must fail with that code;
	// when empty, the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates trace or final state after the flow completes.
type Assertion struct {
	// Type specifies the assertion type:
	// - "execution_count": operation bodies ran exactly N times
	// - "call_count": calls were attempted exactly N times
	// - "trace_order": events appear in the trace in the given order
	// - "membership": object's membership verdict for a behavior
	// - "member_present": object owns (or lacks) a member
	// - "final_state": object's own enumerable fields match expected values
	Type string `yaml:"type"`

	// Operation names the operation (execution_count, call_count).
	Operation string `yaml:"operation,omitempty"`

	// Receiver optionally narrows execution_count to one receiver.
	Receiver string `yaml:"receiver,omitempty"`

	// Target optionally narrows call_count to one call target.
	Target string `yaml:"target,omitempty"`

	// Count is the expected number of occurrences. Zero asserts absence.
	Count int `yaml:"count,omitempty"`

	// Events is the expected in-order subsequence of compact trace forms
	// (used by trace_order), e.g. "apply:Coloured->x", "call:boot@x".
	Events []string `yaml:"events,omitempty"`

	// Behavior names the behavior set (membership).
	Behavior string `yaml:"behavior,omitempty"`

	// Object names the object (membership, member_present, final_state).
	Object string `yaml:"object,omitempty"`

	// Member is the expected membership verdict (membership).
	Member *bool `yaml:"member,omitempty"`

	// Name is the member name to look up (member_present).
	Name string `yaml:"name,omitempty"`

	// Present is whether the object must own the member (member_present).
	Present *bool `yaml:"present,omitempty"`

	// Enumerable optionally also checks the member's enumerable flag
	// (member_present). Installed operations are non-enumerable.
	Enumerable *bool `yaml:"enumerable,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertExecutionCount = "execution_count"
	AssertCallCount      = "call_count"
	AssertTraceOrder     = "trace_order"
	AssertMembership     = "membership"
	AssertMemberPresent  = "member_present"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving behavior paths relative to the provided base path.
// This is useful when scenario files reference declarations using
// relative paths.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like
	// "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve behavior paths relative to base path BEFORE validation
	for i, declPath := range scenario.Behaviors {
		if !filepath.IsAbs(declPath) && basePath != "" {
			scenario.Behaviors[i] = filepath.Join(basePath, declPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Behaviors) == 0 {
		return fmt.Errorf("behaviors list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Validate behavior declaration paths exist
	for _, declPath := range s.Behaviors {
		if _, err := os.Stat(declPath); os.IsNotExist(err) {
			return fmt.Errorf("behavior file not found: %s", declPath)
		}
	}

	// Validate object declarations and collect names for reference checks
	names := make(map[string]bool, len(s.Objects))
	for i, obj := range s.Objects {
		if obj.Name == "" {
			return fmt.Errorf("objects[%d]: name is required", i)
		}
		if names[obj.Name] {
			return fmt.Errorf("objects[%d]: duplicate object name %q", i, obj.Name)
		}
		names[obj.Name] = true
	}

	// Validate flow steps
	for i, step := range s.Flow {
		if err := validateFlowStep(i, &step, names); err != nil {
			return err
		}
	}

	// Validate assertions
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names); err != nil {
			return err
		}
	}

	return nil
}

// validateFlowStep checks one flow step against its declared mode.
// Object references are resolved against the scenario's cast; behavior
// references can only be checked later, once the declarations compile.
func validateFlowStep(index int, step *FlowStep, objects map[string]bool) error {
	modes := 0
	if step.Apply != "" {
		modes++
	}
	if step.Invoke != "" {
		modes++
	}
	if step.Check != "" {
		modes++
	}
	if modes != 1 {
		return fmt.Errorf("flow[%d]: exactly one of apply, invoke, or check is required", index)
	}

	if step.Expect != nil && step.ExpectError != "" {
		return fmt.Errorf("flow[%d]: expect and expect_error are mutually exclusive", index)
	}
	if step.ExpectUndefined && step.Expect != nil {
		return fmt.Errorf("flow[%d]: expect and expect_undefined are mutually exclusive", index)
	}

	switch {
	case step.Apply != "":
		if step.To == "" {
			return fmt.Errorf("flow[%d]: to is required for apply", index)
		}
		if !objects[step.To] {
			return fmt.Errorf("flow[%d]: unknown object %q", index, step.To)
		}
		if len(step.Args) > 0 {
			return fmt.Errorf("flow[%d]: args is only valid for invoke", index)
		}
	case step.Invoke != "":
		if step.On == "" && step.From == "" {
			return fmt.Errorf("flow[%d]: invoke needs on (a receiver) or from (a behavior)", index)
		}
		if step.On != "" && step.From != "" {
			return fmt.Errorf("flow[%d]: on and from are mutually exclusive", index)
		}
		if step.On != "" && !objects[step.On] {
			return fmt.Errorf("flow[%d]: unknown object %q", index, step.On)
		}
	case step.Check != "":
		if step.Of == "" {
			return fmt.Errorf("flow[%d]: of is required for check", index)
		}
		if !objects[step.Of] {
			return fmt.Errorf("flow[%d]: unknown object %q", index, step.Of)
		}
		if step.ExpectError != "" {
			return fmt.Errorf("flow[%d]: check steps cannot expect an error", index)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, objects map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	requireObject := func(name string) error {
		if name == "" {
			return fmt.Errorf("assertions[%d]: object is required for %s", index, a.Type)
		}
		if !objects[name] {
			return fmt.Errorf("assertions[%d]: unknown object %q", index, name)
		}
		return nil
	}

	switch a.Type {
	case AssertExecutionCount, AssertCallCount:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertMembership:
		if a.Behavior == "" {
			return fmt.Errorf("assertions[%d]: behavior is required for membership", index)
		}
		if err := requireObject(a.Object); err != nil {
			return err
		}
		if a.Member == nil {
			return fmt.Errorf("assertions[%d]: member is required for membership", index)
		}
	case AssertMemberPresent:
		if err := requireObject(a.Object); err != nil {
			return err
		}
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for member_present", index)
		}
		if a.Present == nil {
			return fmt.Errorf("assertions[%d]: present is required for member_present", index)
		}
	case AssertFinalState:
		if err := requireObject(a.Object); err != nil {
			return err
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
