package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult contains aggregate results from running a scenario suite.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"` // Filtered out by name
	Scenarios      []ScenarioOutcome `json:"scenarios,omitempty"`
}

// ScenarioOutcome is the per-scenario entry in a suite result. A scenario
// that fails to load still gets an outcome, with the load error recorded.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// FindScenarioFiles walks the directory and returns all .yaml and .yml
// file paths in sorted order, so suite output is stable across platforms.
func FindScenarioFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario file, aggregating outcomes.
//
// Behavior paths inside each scenario resolve relative to the scenario
// file's own directory. A non-empty filter keeps only scenarios whose
// name contains it as a substring; filtered scenarios count as skipped.
//
// Load and execution failures are outcomes, not returned errors: the
// suite keeps going so one broken scenario doesn't hide the rest.
func RunSuite(paths []string, filter string, opts ...Option) *SuiteResult {
	result := &SuiteResult{}

	for _, path := range paths {
		scenario, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
		if err != nil {
			result.TotalScenarios++
			result.Failed++
			result.Scenarios = append(result.Scenarios, ScenarioOutcome{
				Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Path:   path,
				Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
			})
			continue
		}

		if filter != "" && !strings.Contains(scenario.Name, filter) {
			result.Skipped++
			continue
		}
		result.TotalScenarios++

		runResult, err := Run(scenario, opts...)
		if err != nil {
			result.Failed++
			result.Scenarios = append(result.Scenarios, ScenarioOutcome{
				Name:   scenario.Name,
				Path:   path,
				Errors: []string{fmt.Sprintf("scenario execution failed: %v", err)},
			})
			continue
		}

		outcome := ScenarioOutcome{
			Name:   scenario.Name,
			Path:   path,
			Pass:   runResult.Pass,
			Errors: runResult.Errors,
		}
		if runResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, outcome)
	}

	return result
}
