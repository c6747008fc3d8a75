package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// validDecl returns a declaration that passes every check.
func validDecl() *Decl {
	return &Decl{
		Name: "Coloured",
		Operations: []OpDecl{
			{Name: "getColourRGB", Arity: 0, Impl: "get_field", With: map[string]object.Value{"field": object.String("colour")}},
			{Name: "setColourRGB", Arity: 1, Impl: "set_field", With: map[string]object.Value{"field": object.String("colour")}},
		},
		Shared: []SharedDecl{
			{Name: "RED", Value: object.Record{"r": object.Int(255), "g": object.Int(0), "b": object.Int(0)}, Enumerable: true},
		},
	}
}

func TestValidate_ValidDecl(t *testing.T) {
	errs := Validate(validDecl())
	assert.Empty(t, errs)
}

func TestValidate_NilDecl(t *testing.T) {
	errs := Validate(nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNilDecl, errs[0].Code)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	decl := &Decl{
		Name: "bad name",
		Operations: []OpDecl{
			{Name: "poke", Arity: -1, Impl: ""},
			{Name: "poke", Arity: 0, Impl: "noop"},
		},
	}

	errs := Validate(decl)

	codes := make(map[string]int)
	for _, e := range errs {
		codes[e.Code]++
	}
	assert.Equal(t, 1, codes[ErrBehaviorNameBad], "malformed name")
	assert.Equal(t, 1, codes[ErrNegativeArity], "negative arity")
	assert.Equal(t, 1, codes[ErrImplEmpty], "empty impl")
	assert.Equal(t, 1, codes[ErrDuplicateMember], "duplicate operation")
}

func TestValidate_BehaviorName(t *testing.T) {
	tests := []struct {
		name    string
		decl    string
		wantErr bool
	}{
		{"uppercase start", "Coloured", false},
		{"single letter", "C", false},
		{"alphanumeric", "Coloured2", false},
		{"empty", "", true},
		{"whitespace", "  ", true},
		{"lowercase start", "coloured", true},
		{"underscore", "Has_Underscore", true},
		{"dotted", "My.Behavior", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := validDecl()
			decl.Name = tt.decl
			errs := Validate(decl)
			if tt.wantErr {
				require.NotEmpty(t, errs)
				assert.Equal(t, ErrBehaviorNameBad, errs[0].Code)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_MemberNames(t *testing.T) {
	tests := []struct {
		name    string
		member  string
		wantErr bool
	}{
		{"camelCase", "setColourRGB", false},
		{"dollar prefix", "$inner", false},
		{"underscore", "_private", false},
		{"digit start", "2fast", true},
		{"spaced", "set colour", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := validDecl()
			decl.Operations = append(decl.Operations, OpDecl{Name: tt.member, Arity: 0, Impl: "noop"})
			errs := Validate(decl)
			if tt.wantErr {
				require.NotEmpty(t, errs)
				assert.Equal(t, ErrMemberNameBad, errs[0].Code)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_EmptyBehavior(t *testing.T) {
	errs := Validate(&Decl{Name: "Empty"})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoMembers, errs[0].Code)
}

func TestValidate_Policies(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		n       int
		wantErr bool
	}{
		{"none", "", 0, false},
		{"run_at_most_once", "run_at_most_once", 0, false},
		{"run_at_most_n", "run_at_most_n", 3, false},
		{"memoize_by_receiver", "memoize_by_receiver", 0, false},
		{"require_all", "require_all", 0, false},
		{"unknown", "once", 0, true},
		{"negative budget", "run_at_most_n", -1, true},
		{"budget without policy", "", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := validDecl()
			decl.Operations[0].Policy = tt.policy
			decl.Operations[0].PolicyN = tt.n
			errs := Validate(decl)
			if tt.wantErr {
				require.NotEmpty(t, errs)
				assert.Equal(t, ErrInvalidPolicy, errs[0].Code)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_SharedValues(t *testing.T) {
	op := object.NewOperation("helper", 0, func(object.Value, []object.Value) (object.Value, error) {
		return object.Undefined{}, nil
	})

	tests := []struct {
		name    string
		value   object.Value
		wantErr bool
	}{
		{"record", object.Record{"r": object.Int(1)}, false},
		{"string", object.String("x"), false},
		{"missing", nil, true},
		{"callable", object.Method{Op: op}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := validDecl()
			decl.Shared = append(decl.Shared, SharedDecl{Name: "EXTRA", Value: tt.value})
			errs := Validate(decl)
			if tt.wantErr {
				require.NotEmpty(t, errs)
				assert.Equal(t, ErrInvalidSharedValue, errs[0].Code)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_SharedAndOperationNamesAreDistinctNamespaces(t *testing.T) {
	decl := validDecl()
	// A shared member named like an operation is fine; the two kinds
	// install into different places.
	decl.Shared = append(decl.Shared, SharedDecl{
		Name:  "setColourRGB",
		Value: object.String("doc for the op"),
	})

	assert.Empty(t, Validate(decl))
}

func TestValidate_DuplicateSharedMember(t *testing.T) {
	decl := validDecl()
	decl.Shared = append(decl.Shared, SharedDecl{Name: "RED", Value: object.Int(1)})

	errs := Validate(decl)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrDuplicateMember, errs[0].Code)
}

func TestValidationError_Format(t *testing.T) {
	e := ValidationError{Field: "operations[0].arity", Message: "negative", Code: ErrNegativeArity}
	assert.Equal(t, "[E103] operations[0].arity: negative", e.Error())

	e.Line = 12
	assert.Equal(t, "[E103] line 12: operations[0].arity: negative", e.Error())
}

func TestCompileThenValidate(t *testing.T) {
	v := compileString(t, `
		behavior: {
			name: "Coloured"
			operations: setColourRGB: {arity: 1, impl: "set_field", with: field: "colour"}
			operations: getColourRGB: {arity: 0, impl: "get_field", with: field: "colour"}
			shared: RED: {value: {r: 255, g: 0, b: 0}, enumerable: true}
		}
	`)

	decl, err := CompileBehavior(v)
	require.NoError(t, err)
	assert.Empty(t, Validate(decl))
}
