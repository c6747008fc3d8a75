package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Decl is a compiled behavior declaration: the declarative form a
// BehaviorSet is built from. Operations and Shared are sorted by name so
// compiled output is deterministic regardless of declaration order.
type Decl struct {
	Name       string       `json:"name"`
	Doc        string       `json:"doc,omitempty"`
	Operations []OpDecl     `json:"operations,omitempty"`
	Shared     []SharedDecl `json:"shared,omitempty"`
}

// OpDecl declares one instance operation: its declared arity, the builtin
// implementation it binds to, that builtin's configuration, and an
// optional decoration policy.
type OpDecl struct {
	Name    string                  `json:"name"`
	Arity   int                     `json:"arity"`
	Impl    string                  `json:"impl"`
	With    map[string]object.Value `json:"with,omitempty"`
	Policy  string                  `json:"policy,omitempty"`
	PolicyN int                     `json:"policy_n,omitempty"`
}

// SharedDecl declares one shared member and whether it enumerates.
type SharedDecl struct {
	Name       string       `json:"name"`
	Value      object.Value `json:"value"`
	Enumerable bool         `json:"enumerable"`
}

// CompileBehavior parses a CUE value into a Decl.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the behavior struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`behavior: { name: "Coloured", ... }`)
//	decl, err := CompileBehavior(v.LookupPath(cue.ParsePath("behavior")))
func CompileBehavior(v cue.Value) (*Decl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	decl := &Decl{}

	// Parse name (required)
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	decl.Name = name

	// Parse doc (optional)
	docVal := v.LookupPath(cue.ParsePath("doc"))
	if docVal.Exists() {
		doc, err := docVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		decl.Doc = doc
	}

	decl.Operations, err = parseOperations(v)
	if err != nil {
		return nil, err
	}

	decl.Shared, err = parseShared(v)
	if err != nil {
		return nil, err
	}

	if len(decl.Operations) == 0 && len(decl.Shared) == 0 {
		return nil, &CompileError{
			Field:   "operations",
			Message: "at least one operation or shared member is required",
			Pos:     v.Pos(),
		}
	}

	return decl, nil
}

// parseOperations extracts operation declarations from the behavior.
func parseOperations(v cue.Value) ([]OpDecl, error) {
	var ops []OpDecl

	opsVal := v.LookupPath(cue.ParsePath("operations"))
	if !opsVal.Exists() {
		return ops, nil
	}

	iter, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		opName := iter.Label()
		opValue := iter.Value()

		op := OpDecl{
			Name: opName,
		}

		// Parse arity (required)
		arityVal := opValue.LookupPath(cue.ParsePath("arity"))
		if !arityVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("operations.%s.arity", opName),
				Message: "operation arity is required",
				Pos:     opValue.Pos(),
			}
		}
		arity, err := arityVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op.Arity = int(arity)

		// Parse impl (required)
		implVal := opValue.LookupPath(cue.ParsePath("impl"))
		if !implVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("operations.%s.impl", opName),
				Message: "operation impl is required",
				Pos:     opValue.Pos(),
			}
		}
		impl, err := implVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op.Impl = impl

		// Parse with (optional builtin configuration)
		withVal := opValue.LookupPath(cue.ParsePath("with"))
		if withVal.Exists() {
			withIter, err := withVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			op.With = make(map[string]object.Value)
			for withIter.Next() {
				val, err := decodeValue(withIter.Value())
				if err != nil {
					return nil, err
				}
				op.With[withIter.Label()] = val
			}
		}

		// Parse decorate (optional policy)
		decVal := opValue.LookupPath(cue.ParsePath("decorate"))
		if decVal.Exists() {
			policyVal := decVal.LookupPath(cue.ParsePath("policy"))
			if !policyVal.Exists() {
				return nil, &CompileError{
					Field:   fmt.Sprintf("operations.%s.decorate.policy", opName),
					Message: "decorate requires a policy name",
					Pos:     decVal.Pos(),
				}
			}
			policy, err := policyVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			op.Policy = policy

			nVal := decVal.LookupPath(cue.ParsePath("n"))
			if nVal.Exists() {
				n, err := nVal.Int64()
				if err != nil {
					return nil, formatCUEError(err)
				}
				op.PolicyN = int(n)
			}
		}

		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops, nil
}

// parseShared extracts shared member declarations from the behavior.
func parseShared(v cue.Value) ([]SharedDecl, error) {
	var shared []SharedDecl

	sharedVal := v.LookupPath(cue.ParsePath("shared"))
	if !sharedVal.Exists() {
		return shared, nil
	}

	iter, err := sharedVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		memberName := iter.Label()
		memberValue := iter.Value()

		member := SharedDecl{
			Name: memberName,
		}

		// Parse value (required)
		valueVal := memberValue.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("shared.%s.value", memberName),
				Message: "shared member value is required",
				Pos:     memberValue.Pos(),
			}
		}
		value, err := decodeValue(valueVal)
		if err != nil {
			return nil, err
		}
		member.Value = value

		// Parse enumerable (optional, defaults to hidden)
		enumVal := memberValue.LookupPath(cue.ParsePath("enumerable"))
		if enumVal.Exists() {
			enumerable, err := enumVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			member.Enumerable = enumerable
		}

		shared = append(shared, member)
	}

	sort.Slice(shared, func(i, j int) bool { return shared[i].Name < shared[j].Name })
	return shared, nil
}

// decodeValue converts concrete CUE data to an object.Value.
// Floats are forbidden; nulls are forbidden in declarations (omit the
// member instead).
func decodeValue(v cue.Value) (object.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return object.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return object.Int(i), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return object.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := object.List{}
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		record := object.Record{}
		for iter.Next() {
			field, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			record[iter.Label()] = field
		}
		return record, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	case cue.NullKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "null values are forbidden in declarations - omit the member instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
