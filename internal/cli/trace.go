package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mikhailrojo/javascript-allonge-six/internal/harness"
	"github.com/mikhailrojo/javascript-allonge-six/internal/journal"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Operation string // optional - filter to specific operation
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Scenario string          `json:"scenario"`
	Timeline []journal.Event `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents  int  `json:"total_events"`
	Applications int  `json:"applications"`
	Calls        int  `json:"calls"`
	Executions   int  `json:"executions"`
	Pass         bool `json:"pass"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <decls-dir> <scenario>",
		Short: "Run one scenario and print its journal timeline",
		Long: `Run a single scenario and print the journal timeline it produced.

Shows every application, call, and execution in sequence order. Calls
suppressed by a decoration policy appear as call events with no matching
execution event, which makes suppression visible at a glance.

The output includes:
- Timeline: Chronological list of applications, calls, and executions
- Stats: Event counts and the scenario verdict

Examples:
  allonge trace ./behaviors ./scenarios/boot_once.yaml
  allonge trace ./behaviors ./scenarios/boot_once.yaml --operation boot
  allonge trace ./behaviors ./scenarios/boot_once.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Operation, "operation", "", "filter to specific operation name")

	return cmd
}

func runTrace(opts *TraceOptions, declsDir, scenarioFile string, cmd *cobra.Command) error {
	if _, err := os.Stat(declsDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("declarations directory not found: %s", declsDir))
	}

	scenario, err := harness.LoadScenarioWithBasePath(scenarioFile, declsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	timeline := buildTimeline(result.Trace, opts.Operation)

	traceResult := TraceResult{
		Scenario: scenario.Name,
		Timeline: timeline,
		Stats:    calculateTraceStats(result, timeline),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, traceResult)
	}

	return outputTraceText(cmd, traceResult, result, opts.Verbose)
}

// buildTimeline filters trace events by operation name. Application
// events pass through only when no filter is set; call and execution
// events match on their operation name.
func buildTimeline(trace []journal.Event, operationFilter string) []journal.Event {
	if operationFilter == "" {
		return trace
	}

	var timeline []journal.Event
	for _, event := range trace {
		if event.Kind == "application" {
			continue
		}
		if event.Name != operationFilter {
			continue
		}
		timeline = append(timeline, event)
	}
	return timeline
}

// calculateTraceStats counts event kinds over the full trace. TotalEvents
// reflects the filtered timeline so the filter's effect is visible.
func calculateTraceStats(result *harness.Result, timeline []journal.Event) TraceStats {
	stats := TraceStats{
		TotalEvents: len(timeline),
		Pass:        result.Pass,
	}

	for _, event := range result.Trace {
		switch event.Kind {
		case "application":
			stats.Applications++
		case "call":
			stats.Calls++
		case "execution":
			stats.Executions++
		}
	}

	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	status := "ok"
	if !result.Stats.Pass {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}
	if !result.Stats.Pass {
		response.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("scenario %q failed", result.Scenario),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Stats.Pass {
		// Scenario failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", result.Scenario))
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, traceResult TraceResult, result *harness.Result, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Scenario: %s\n", traceResult.Scenario)
	fmt.Fprintf(w, "Status: %s\n", passStatus(result.Pass))
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(traceResult.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range traceResult.Timeline {
			fmt.Fprintf(w, "  [%d] %s\n", event.Seq, event.String())
		}
	}
	fmt.Fprintln(w)

	// Final state section (verbose only)
	if verbose {
		fmt.Fprintln(w, "=== Final State ===")
		if len(result.State) == 0 {
			fmt.Fprintln(w, "  (no objects)")
		} else {
			names := make([]string, 0, len(result.State))
			for name := range result.State {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				data, err := object.MarshalCanonical(result.State[name])
				if err != nil {
					return fmt.Errorf("failed to marshal state for %s: %w", name, err)
				}
				fmt.Fprintf(w, "  %s: %s\n", name, data)
			}
		}
		fmt.Fprintln(w)
	}

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", traceResult.Stats.TotalEvents)
	fmt.Fprintf(w, "  Applications: %d\n", traceResult.Stats.Applications)
	fmt.Fprintf(w, "  Calls:        %d\n", traceResult.Stats.Calls)
	fmt.Fprintf(w, "  Executions:   %d\n", traceResult.Stats.Executions)

	if !result.Pass {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		// Scenario failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", traceResult.Scenario))
	}

	return nil
}

// passStatus returns a human-readable scenario verdict.
func passStatus(pass bool) string {
	if pass {
		return "Pass"
	}
	return "Fail"
}
