package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mikhailrojo/javascript-allonge-six/decorate"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Validation error codes (E100-E199)
const (
	ErrNilDecl            = "E100" // declaration is nil
	ErrBehaviorNameBad    = "E101" // behavior name missing or malformed
	ErrNoMembers          = "E102" // at least one operation or shared member required
	ErrNegativeArity      = "E103" // operation arity must be >= 0
	ErrImplEmpty          = "E104" // operation impl is required
	ErrDuplicateMember    = "E105" // duplicate operation/shared name
	ErrInvalidPolicy      = "E106" // unknown policy or bad budget
	ErrInvalidSharedValue = "E107" // shared value missing or callable
	ErrMemberNameBad      = "E108" // member name is not a valid identifier
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// behaviorNamePattern matches behavior names: uppercase start, like a
// type name.
var behaviorNamePattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

// memberNamePattern matches member names the way host identifiers work,
// dollar signs included.
var memberNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate validates a compiled declaration against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(decl *Decl) []ValidationError {
	if decl == nil {
		return []ValidationError{{
			Field:   "decl",
			Message: "declaration is nil",
			Code:    ErrNilDecl,
		}}
	}

	var errs []ValidationError

	// E101: behavior name required and well-formed
	if strings.TrimSpace(decl.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "behavior name is required and must be non-empty",
			Code:    ErrBehaviorNameBad,
		})
	} else if !behaviorNamePattern.MatchString(decl.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("behavior name %q must match %s", decl.Name, behaviorNamePattern),
			Code:    ErrBehaviorNameBad,
		})
	}

	// E102: an empty behavior has nothing to install
	if len(decl.Operations) == 0 && len(decl.Shared) == 0 {
		errs = append(errs, ValidationError{
			Field:   "operations",
			Message: "at least one operation or shared member is required",
			Code:    ErrNoMembers,
		})
	}

	// Track names for duplicate detection. Operations and shared members
	// live in distinct namespaces, so only within-kind duplicates are
	// errors.
	opNames := make(map[string]bool)
	sharedNames := make(map[string]bool)

	for i, op := range decl.Operations {
		// E108: member name must be a valid identifier
		if !memberNamePattern.MatchString(op.Name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("operations[%d].name", i),
				Message: fmt.Sprintf("operation name %q is not a valid identifier", op.Name),
				Code:    ErrMemberNameBad,
			})
		}

		// E105: duplicate operation name
		if opNames[op.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("operations[%d].name", i),
				Message: fmt.Sprintf("duplicate operation name: %q", op.Name),
				Code:    ErrDuplicateMember,
			})
		}
		opNames[op.Name] = true

		// E103: arity must be non-negative
		if op.Arity < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("operations[%d].arity", i),
				Message: fmt.Sprintf("operation %q has negative arity %d", op.Name, op.Arity),
				Code:    ErrNegativeArity,
			})
		}

		// E104: impl binds the operation to a builtin body
		if strings.TrimSpace(op.Impl) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("operations[%d].impl", i),
				Message: fmt.Sprintf("operation %q must name an impl", op.Name),
				Code:    ErrImplEmpty,
			})
		}

		// E106: declared policy must resolve
		if op.Policy != "" {
			if _, err := decorate.ParsePolicy(op.Policy, op.PolicyN); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("operations[%d].policy", i),
					Message: fmt.Sprintf("operation %q: %v", op.Name, err),
					Code:    ErrInvalidPolicy,
				})
			}
		} else if op.PolicyN != 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("operations[%d].policy_n", i),
				Message: fmt.Sprintf("operation %q sets a budget without a policy", op.Name),
				Code:    ErrInvalidPolicy,
			})
		}
	}

	for i, member := range decl.Shared {
		// E108: member name must be a valid identifier
		if !memberNamePattern.MatchString(member.Name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("shared[%d].name", i),
				Message: fmt.Sprintf("shared member name %q is not a valid identifier", member.Name),
				Code:    ErrMemberNameBad,
			})
		}

		// E105: duplicate shared name
		if sharedNames[member.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("shared[%d].name", i),
				Message: fmt.Sprintf("duplicate shared member name: %q", member.Name),
				Code:    ErrDuplicateMember,
			})
		}
		sharedNames[member.Name] = true

		// E107: shared members carry data values
		switch member.Value.(type) {
		case nil:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("shared[%d].value", i),
				Message: fmt.Sprintf("shared member %q must carry a value", member.Name),
				Code:    ErrInvalidSharedValue,
			})
		case object.Method:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("shared[%d].value", i),
				Message: fmt.Sprintf("shared member %q must not be callable in a declaration", member.Name),
				Code:    ErrInvalidSharedValue,
			})
		}
	}

	return errs
}
