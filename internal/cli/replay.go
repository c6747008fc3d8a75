package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mikhailrojo/javascript-allonge-six/internal/harness"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// ReplayScenarioResult holds the replay result for a single scenario.
type ReplayScenarioResult struct {
	Name          string `json:"name"`
	Applications  int    `json:"applications"`
	Calls         int    `json:"calls"`
	Executions    int    `json:"executions"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Scenarios        []ReplayScenarioResult `json:"scenarios"`
	TotalScenarios   int                    `json:"total_scenarios"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <decls-dir> <scenarios-dir>",
		Short: "Replay scenarios and verify determinism",
		Long: `Replay each scenario twice and verify deterministic behavior.

Every scenario runs against two fresh in-memory journals. The canonical
snapshots (trace plus final state) from both runs are compared byte for
byte; any divergence in event ordering, suppression, or final state is a
determinism failure.

Exit codes:
  0 - All scenarios are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (invalid paths, etc.)

Examples:
  allonge replay ./behaviors ./scenarios
  allonge replay ./behaviors ./scenarios --filter "boot_*"
  allonge replay ./behaviors ./scenarios --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runReplay(opts *ReplayOptions, declsDir, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(declsDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("declarations directory not found: %s", declsDir))
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			result := ReplayResult{
				Scenarios:        []ReplayScenarioResult{},
				TotalScenarios:   0,
				AllDeterministic: true,
			}
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := ReplayResult{
		Scenarios:        make([]ReplayScenarioResult, 0, len(scenarioFiles)),
		TotalScenarios:   len(scenarioFiles),
		AllDeterministic: true,
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult, err := replayAndVerifyScenario(scenarioFile, declsDir)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay %s", filepath.Base(scenarioFile)), err)
		}

		result.Scenarios = append(result.Scenarios, scenResult)
		if !scenResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyScenario runs a single scenario twice and compares the
// canonical snapshots.
func replayAndVerifyScenario(scenarioFile, declsDir string) (ReplayScenarioResult, error) {
	scenario, err := harness.LoadScenarioWithBasePath(scenarioFile, declsDir)
	if err != nil {
		return ReplayScenarioResult{}, fmt.Errorf("failed to load scenario: %w", err)
	}

	first, err := harness.Run(scenario)
	if err != nil {
		return ReplayScenarioResult{}, fmt.Errorf("first run failed: %w", err)
	}

	second, err := harness.Run(scenario)
	if err != nil {
		return ReplayScenarioResult{}, fmt.Errorf("second run failed: %w", err)
	}

	firstSnapshot := harness.NewTraceSnapshot(scenario.Name, first)
	firstData, err := firstSnapshot.CanonicalJSON()
	if err != nil {
		return ReplayScenarioResult{}, fmt.Errorf("failed to marshal first snapshot: %w", err)
	}

	secondSnapshot := harness.NewTraceSnapshot(scenario.Name, second)
	secondData, err := secondSnapshot.CanonicalJSON()
	if err != nil {
		return ReplayScenarioResult{}, fmt.Errorf("failed to marshal second snapshot: %w", err)
	}

	scenResult := ReplayScenarioResult{
		Name:          scenario.Name,
		Deterministic: bytes.Equal(firstData, secondData),
	}

	for _, event := range first.Trace {
		switch event.Kind {
		case "application":
			scenResult.Applications++
		case "call":
			scenResult.Calls++
		case "execution":
			scenResult.Executions++
		}
	}

	return scenResult, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d scenario(s)\n", result.TotalScenarios)
	fmt.Fprintln(w)

	for _, scen := range result.Scenarios {
		status := "✓"
		if !scen.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Scenario: %s\n", status, scen.Name)

		if verbose {
			fmt.Fprintf(w, "  Applications: %d\n", scen.Applications)
			fmt.Fprintf(w, "  Calls: %d\n", scen.Calls)
			fmt.Fprintf(w, "  Executions: %d\n", scen.Executions)
		} else {
			fmt.Fprintf(w, "  Events: %d applications, %d calls, %d executions\n",
				scen.Applications, scen.Calls, scen.Executions)
		}

		if !scen.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All scenarios verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
