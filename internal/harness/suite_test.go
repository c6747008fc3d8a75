package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarioFiles(t *testing.T) {
	files, err := FindScenarioFiles(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	require.Len(t, files, 8)
	assert.True(t, sort.StringsAreSorted(files))
	assert.Equal(t, filepath.Join("testdata", "scenarios", "boot_once.yaml"), files[0])
	assert.Equal(t, filepath.Join("testdata", "scenarios", "seal_rejects_apply.yaml"), files[7])
}

func TestFindScenarioFiles_MissingDir(t *testing.T) {
	_, err := FindScenarioFiles(filepath.Join(t.TempDir(), "ghost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario directory")
}

func TestFindScenarioFiles_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x"), 0644))

	_, err := FindScenarioFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRunSuite_AllPass(t *testing.T) {
	files, err := FindScenarioFiles(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	suite := RunSuite(files, "")

	assert.Equal(t, 8, suite.TotalScenarios)
	assert.Equal(t, 8, suite.Passed)
	assert.Equal(t, 0, suite.Failed)
	assert.Equal(t, 0, suite.Skipped)
	require.Len(t, suite.Scenarios, 8)
	for _, outcome := range suite.Scenarios {
		assert.True(t, outcome.Pass, "scenario %s failed: %v", outcome.Name, outcome.Errors)
		assert.Empty(t, outcome.Errors)
	}
}

func TestRunSuite_Filter(t *testing.T) {
	files, err := FindScenarioFiles(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	suite := RunSuite(files, "boot")

	// boot_once and receiverless_boot match; the rest skip
	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 2, suite.Passed)
	assert.Equal(t, 6, suite.Skipped)
	require.Len(t, suite.Scenarios, 2)
	assert.Equal(t, "boot_once", suite.Scenarios[0].Name)
	assert.Equal(t, "receiverless_boot", suite.Scenarios[1].Name)
}

func TestRunSuite_LoadFailureIsAnOutcome(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\n"), 0644))

	suite := RunSuite([]string{path}, "")

	assert.Equal(t, 1, suite.TotalScenarios)
	assert.Equal(t, 1, suite.Failed)
	require.Len(t, suite.Scenarios, 1)
	outcome := suite.Scenarios[0]
	assert.Equal(t, "broken", outcome.Name)
	assert.False(t, outcome.Pass)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "failed to load scenario")
}

func TestRunSuite_FailingScenarioKeepsGoing(t *testing.T) {
	declPath, err := filepath.Abs(filepath.Join("testdata", "behaviors", "coloured.cue"))
	require.NoError(t, err)

	dir := t.TempDir()
	failing := filepath.Join(dir, "a_failing.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(fmt.Sprintf(`
name: wrong_count
description: Expects an execution that never happens
behaviors:
  - %s
objects:
  - name: x
flow:
  - apply: Coloured
    to: x
assertions:
  - type: execution_count
    operation: setColourRGB
    count: 1
`, declPath)), 0644))

	passing := filepath.Join(dir, "b_passing.yaml")
	require.NoError(t, os.WriteFile(passing, []byte(fmt.Sprintf(`
name: right_count
description: Applies without invoking anything
behaviors:
  - %s
objects:
  - name: x
flow:
  - apply: Coloured
    to: x
assertions:
  - type: execution_count
    operation: setColourRGB
    count: 0
`, declPath)), 0644))

	suite := RunSuite([]string{failing, passing}, "")

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 1, suite.Failed)
	require.Len(t, suite.Scenarios, 2)
	assert.False(t, suite.Scenarios[0].Pass)
	assert.Contains(t, suite.Scenarios[0].Errors[0], "Assertion failed: execution_count")
	assert.True(t, suite.Scenarios[1].Pass)
}
