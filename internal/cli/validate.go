package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/mikhailrojo/javascript-allonge-six/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	FailFast bool // stop at the first broken file instead of collecting
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Files  int         `json:"files"`
	Issues []DeclIssue `json:"issues,omitempty"`
}

// DeclIssue groups validation errors by source file.
type DeclIssue struct {
	File   string                     `json:"file"`
	Errors []compiler.ValidationError `json:"errors"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <decls-dir>",
		Short: "Validate behavior declarations",
		Long: `Validate CUE behavior declarations without building live sets.

Each .cue file is compiled and checked against the declaration schema:
behavior naming, member identifiers, arities, impl bindings, decoration
policies, and shared member values. By default every file is checked and
all errors are reported together; --fail-fast stops at the first broken
file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first file with errors")

	return cmd
}

func runValidate(opts *ValidateOptions, declsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	mode := LoadModeCollectAll
	if opts.FailFast {
		mode = LoadModeFailFast
	}
	loadResult, loadErrors := LoadDecls(declsDir, mode)

	// Handle directory-level failures (not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, declsDir)

	var issues []DeclIssue

	// Files that failed to load or compile report as issues too, so one
	// run covers the whole directory.
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			issues = append(issues, DeclIssue{
				File: loadErrorFile(loadErr),
				Errors: []compiler.ValidationError{{
					Field:   "load",
					Message: loadErr.Message,
					Code:    loadErr.Code,
					Line:    getLineFromCuePos(loadErr.Pos),
				}},
			})
		}
	}

	for _, loaded := range loadResult.Decls {
		formatter.VerboseLog("Validating behavior: %s", loaded.Decl.Name)
		if verrs := compiler.Validate(loaded.Decl); len(verrs) > 0 {
			issues = append(issues, DeclIssue{File: loaded.Path, Errors: verrs})
		}
	}

	if len(issues) > 0 {
		return outputValidationIssues(formatter, loadResult.FileCount, issues)
	}

	return outputValidateSuccess(formatter, loadResult.FileCount)
}

// ValidateDecls validates every declaration in a directory and returns
// per-file issues. Helper for programmatic callers.
func ValidateDecls(declsDir string) ([]DeclIssue, error) {
	loadResult, loadErrors := LoadDecls(declsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var issues []DeclIssue
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			issues = append(issues, DeclIssue{
				File: loadErrorFile(loadErr),
				Errors: []compiler.ValidationError{{
					Field:   "load",
					Message: loadErr.Message,
					Code:    loadErr.Code,
					Line:    getLineFromCuePos(loadErr.Pos),
				}},
			})
		}
	}
	for _, loaded := range loadResult.Decls {
		if verrs := compiler.Validate(loaded.Decl); len(verrs) > 0 {
			issues = append(issues, DeclIssue{File: loaded.Path, Errors: verrs})
		}
	}
	return issues, nil
}

// loadErrorFile extracts the best file attribution a load error carries.
func loadErrorFile(loadErr *LoadError) string {
	if loadErr.Pos.IsValid() {
		return loadErr.Pos.Filename()
	}
	return ""
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ All declarations valid (%d file(s))\n", files)
	return nil
}

// outputValidateError outputs a directory-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Directory-level problems are command errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationIssues outputs per-file validation errors.
func outputValidationIssues(formatter *OutputFormatter, files int, issues []DeclIssue) error {
	total := 0
	for _, issue := range issues {
		total += len(issue.Errors)
	}

	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Files:  files,
			Issues: issues,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    issues[0].Errors[0].Code,
				Message: issues[0].Errors[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.File != "" {
			fmt.Fprintln(formatter.Writer, issue.File)
		}
		for _, err := range issue.Errors {
			if err.Line > 0 {
				fmt.Fprintf(formatter.Writer, "  line %d: [%s] %s: %s\n", err.Line, err.Code, err.Field, err.Message)
				continue
			}
			fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", err.Code, err.Field, err.Message)
		}
		fmt.Fprintln(formatter.Writer)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
}
