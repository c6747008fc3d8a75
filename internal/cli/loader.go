package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/mikhailrojo/javascript-allonge-six/internal/compiler"
)

// LoadMode controls how errors are handled during declaration loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedDecl pairs a compiled behavior declaration with its source file.
type LoadedDecl struct {
	Path string
	Decl *compiler.Decl
}

// LoadResult contains the results of loading declarations from a directory.
type LoadResult struct {
	Decls     []LoadedDecl
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during declaration loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDecls loads and compiles every CUE behavior declaration in a
// directory. Each file holds one top-level "behavior" declaration and
// loads as its own CUE instance, so separate files never unify against
// each other.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDecls(dir string, mode LoadMode) (*LoadResult, []error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("declarations directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing declarations directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}
	var errs []error

	// Track behavior names for cross-file duplicate detection.
	seen := make(map[string]string)

	ctx := cuecontext.New()
	for _, path := range cueFiles {
		decl, loadErr := compileDeclFile(ctx, path)
		if loadErr != nil {
			errs = append(errs, loadErr)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		if prev, dup := seen[decl.Name]; dup {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicate,
				Message: fmt.Sprintf("%s: duplicate behavior %q (already declared in %s)", path, decl.Name, prev),
			})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		seen[decl.Name] = path

		result.Decls = append(result.Decls, LoadedDecl{Path: path, Decl: decl})
	}

	return result, errs
}

// compileDeclFile loads one CUE file and compiles its behavior
// declaration.
func compileDeclFile(ctx *cue.Context, path string) (*compiler.Decl, *LoadError) {
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: no CUE instance loaded", path)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: loading CUE file: %v", path, inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("%s: building CUE value: %v", path, err)}
	}

	declVal := value.LookupPath(cue.ParsePath("behavior"))
	if !declVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoBehavior, Message: fmt.Sprintf("%s: no top-level \"behavior\" field", path)}
	}

	decl, err := compiler.CompileBehavior(declVal)
	if err != nil {
		return nil, convertCompileError(err, path)
	}
	return decl, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, path string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", path, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoBehavior  = "E008" // File has no behavior declaration
	ErrCodeDuplicate   = "E009" // Duplicate behavior name across files
)

// MapFieldToErrorCode maps a compile error field to the validation error
// code the same problem would carry after compilation, so validate and
// compile report one vocabulary.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "name":
		return compiler.ErrBehaviorNameBad
	case field == "operations":
		return compiler.ErrNoMembers
	case strings.HasSuffix(field, ".arity"):
		return compiler.ErrNegativeArity
	case strings.HasSuffix(field, ".impl"):
		return compiler.ErrImplEmpty
	case strings.HasSuffix(field, ".policy"):
		return compiler.ErrInvalidPolicy
	case field == "value" || strings.HasSuffix(field, ".value"):
		return compiler.ErrInvalidSharedValue
	default:
		return ErrCodeGeneric
	}
}
