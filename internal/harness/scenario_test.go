package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDecl creates a placeholder behavior declaration file.
// LoadScenario only checks that referenced files exist; compilation
// happens later, at run time.
func createTestDecl(t *testing.T, dir, name string) string {
	t.Helper()
	declsDir := filepath.Join(dir, "behaviors")
	if err := os.MkdirAll(declsDir, 0755); err != nil {
		t.Fatal(err)
	}
	declPath := filepath.Join(declsDir, name)
	if err := os.WriteFile(declPath, []byte("// placeholder behavior"), 0644); err != nil {
		t.Fatal(err)
	}
	return declPath
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	declPath := createTestDecl(t, dir, "coloured.cue")

	content := `
name: test_scenario
description: "Test scenario for validation"
behaviors:
  - ` + declPath + `
objects:
  - name: x
  - name: frozen
    sealed: true
    fields:
      label: "keep"
flow:
  - apply: Coloured
    to: x
  - invoke: setColourRGB
    on: x
    args: [{r: 255, g: 0, b: 0}]
    expect: {r: 255, g: 0, b: 0}
  - check: Coloured
    of: x
    expect: true
assertions:
  - type: membership
    behavior: Coloured
    object: x
    member: true
`
	scenario, err := LoadScenario(writeScenario(t, dir, content))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Behaviors, 1)
	assert.Len(t, scenario.Objects, 2)
	assert.True(t, scenario.Objects[1].Sealed)
	assert.Equal(t, "keep", scenario.Objects[1].Fields["label"])
	assert.Len(t, scenario.Flow, 3)
	assert.Equal(t, "Coloured", scenario.Flow[0].Apply)
	assert.Equal(t, "x", scenario.Flow[0].To)
	assert.Equal(t, "setColourRGB", scenario.Flow[1].Invoke)
	assert.Len(t, scenario.Flow[1].Args, 1)
	assert.Equal(t, "Coloured", scenario.Flow[2].Check)
	require.Len(t, scenario.Assertions, 1)
	require.NotNil(t, scenario.Assertions[0].Member)
	assert.True(t, *scenario.Assertions[0].Member)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	declPath := createTestDecl(t, dir, "coloured.cue")

	// "assertion" (singular) is a typo for "assertions"
	content := `
name: typo
description: "Strict decoding catches typos"
behaviors:
  - ` + declPath + `
flow:
  - check: Coloured
    of: x
assertion:
  - type: membership
`
	_, err := LoadScenario(writeScenario(t, dir, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	declPath := createTestDecl(t, dir, "coloured.cue")

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "No name"
behaviors: [` + declPath + `]
flow:
  - apply: B
    to: x
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: no_description
behaviors: [` + declPath + `]
flow:
  - apply: B
    to: x
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`,
			wantErr: "description is required",
		},
		{
			name: "missing behaviors",
			content: `
name: no_behaviors
description: "d"
flow:
  - apply: B
    to: x
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`,
			wantErr: "behaviors list is required",
		},
		{
			name: "missing flow",
			content: `
name: no_flow
description: "d"
behaviors: [` + declPath + `]
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`,
			wantErr: "flow list is required",
		},
		{
			name: "missing assertions",
			content: `
name: no_assertions
description: "d"
behaviors: [` + declPath + `]
flow:
  - apply: B
    to: x
`,
			wantErr: "assertions list is required",
		},
		{
			name: "behavior file not found",
			content: `
name: missing_decl
description: "d"
behaviors: [/nonexistent/behavior.cue]
flow:
  - apply: B
    to: x
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`,
			wantErr: "behavior file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FlowValidation(t *testing.T) {
	dir := t.TempDir()
	declPath := createTestDecl(t, dir, "coloured.cue")

	header := `
name: flow_validation
description: "d"
behaviors: [` + declPath + `]
objects:
  - name: x
`
	footer := `
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`

	tests := []struct {
		name    string
		flow    string
		wantErr string
	}{
		{
			name: "no mode",
			flow: `
flow:
  - to: x
`,
			wantErr: "exactly one of apply, invoke, or check",
		},
		{
			name: "two modes",
			flow: `
flow:
  - apply: B
    to: x
    invoke: op
    on: x
`,
			wantErr: "exactly one of apply, invoke, or check",
		},
		{
			name: "apply without target",
			flow: `
flow:
  - apply: B
`,
			wantErr: "to is required for apply",
		},
		{
			name: "apply to unknown object",
			flow: `
flow:
  - apply: B
    to: ghost
`,
			wantErr: `unknown object "ghost"`,
		},
		{
			name: "apply with args",
			flow: `
flow:
  - apply: B
    to: x
    args: [1]
`,
			wantErr: "args is only valid for invoke",
		},
		{
			name: "invoke without receiver or behavior",
			flow: `
flow:
  - invoke: op
`,
			wantErr: "invoke needs on (a receiver) or from (a behavior)",
		},
		{
			name: "invoke with both receiver and behavior",
			flow: `
flow:
  - invoke: op
    on: x
    from: B
`,
			wantErr: "on and from are mutually exclusive",
		},
		{
			name: "check without object",
			flow: `
flow:
  - check: B
`,
			wantErr: "of is required for check",
		},
		{
			name: "check expecting error",
			flow: `
flow:
  - check: B
    of: x
    expect_error: INVALID_TARGET
`,
			wantErr: "check steps cannot expect an error",
		},
		{
			name: "expect alongside expect_error",
			flow: `
flow:
  - invoke: op
    on: x
    expect: 1
    expect_error: MISSING_ARGUMENTS
`,
			wantErr: "expect and expect_error are mutually exclusive",
		},
		{
			name: "expect alongside expect_undefined",
			flow: `
flow:
  - invoke: op
    on: x
    expect: 1
    expect_undefined: true
`,
			wantErr: "expect and expect_undefined are mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), header+tt.flow+footer))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_AssertionValidation(t *testing.T) {
	dir := t.TempDir()
	declPath := createTestDecl(t, dir, "coloured.cue")

	header := `
name: assertion_validation
description: "d"
behaviors: [` + declPath + `]
objects:
  - name: x
flow:
  - apply: B
    to: x
`

	tests := []struct {
		name       string
		assertions string
		wantErr    string
	}{
		{
			name: "missing type",
			assertions: `
assertions:
  - operation: op
`,
			wantErr: "type is required",
		},
		{
			name: "unknown type",
			assertions: `
assertions:
  - type: trace_contains
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "execution_count without operation",
			assertions: `
assertions:
  - type: execution_count
    count: 1
`,
			wantErr: "operation is required",
		},
		{
			name: "negative count",
			assertions: `
assertions:
  - type: call_count
    operation: op
    count: -1
`,
			wantErr: "count must be non-negative",
		},
		{
			name: "trace_order without events",
			assertions: `
assertions:
  - type: trace_order
`,
			wantErr: "events list is required",
		},
		{
			name: "membership without behavior",
			assertions: `
assertions:
  - type: membership
    object: x
    member: true
`,
			wantErr: "behavior is required",
		},
		{
			name: "membership without verdict",
			assertions: `
assertions:
  - type: membership
    behavior: B
    object: x
`,
			wantErr: "member is required",
		},
		{
			name: "membership with unknown object",
			assertions: `
assertions:
  - type: membership
    behavior: B
    object: ghost
    member: true
`,
			wantErr: `unknown object "ghost"`,
		},
		{
			name: "member_present without name",
			assertions: `
assertions:
  - type: member_present
    object: x
    present: true
`,
			wantErr: "name is required",
		},
		{
			name: "member_present without present",
			assertions: `
assertions:
  - type: member_present
    object: x
    name: op
`,
			wantErr: "present is required",
		},
		{
			name: "final_state without expect",
			assertions: `
assertions:
  - type: final_state
    object: x
`,
			wantErr: "expect is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), header+tt.assertions))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_DuplicateObjectName(t *testing.T) {
	dir := t.TempDir()
	declPath := createTestDecl(t, dir, "coloured.cue")

	content := `
name: duplicate_objects
description: "d"
behaviors: [` + declPath + `]
objects:
  - name: x
  - name: x
flow:
  - apply: B
    to: x
assertions:
  - type: trace_order
    events: ["apply:B->x"]
`
	_, err := LoadScenario(writeScenario(t, dir, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate object name "x"`)
}

func TestLoadScenarioWithBasePath_ResolvesRelative(t *testing.T) {
	dir := t.TempDir()
	createTestDecl(t, dir, "coloured.cue")

	content := `
name: relative_paths
description: "d"
behaviors:
  - behaviors/coloured.cue
objects:
  - name: x
flow:
  - apply: Coloured
    to: x
assertions:
  - type: trace_order
    events: ["apply:Coloured->x"]
`
	scenario, err := LoadScenarioWithBasePath(writeScenario(t, dir, content), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "behaviors", "coloured.cue"), scenario.Behaviors[0])
}
