package object

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the dynamic value kinds a property can
// hold. Only Undefined, String, Int, Bool, List, Record, Ref, and Method
// implement it. NO float kind - floats break canonical JSON determinism.
type Value interface {
	value() // Sealed - only these types implement it
}

// Undefined is the absent value: reading a missing property, reading past
// the end of an argument list, and a suppressed decorated invocation all
// produce Undefined. It is falsy and encodes canonically as null.
type Undefined struct{}

func (Undefined) value() {}

// String is a string value.
type String string

func (String) value() {}

// Int is an integer value. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Record is a string-keyed map of plain data values. Records are treated
// as immutable data (shared, never mutated in place); live mutable state
// belongs on an Object. Use SortedKeys for deterministic iteration.
type Record map[string]Value

func (Record) value() {}

// Ref is a reference to a live Object. Two Refs compare equal exactly when
// they designate the same Object, which is what per-receiver state isolation
// keys on.
type Ref struct {
	Target *Object
}

func (Ref) value() {}

// Method is a callable property value. Installing an operation on an object
// means defining a property whose value is a Method.
type Method struct {
	Op *Operation
}

func (Method) value() {}

// Truthy reports the truthiness of a value: Undefined is falsy, Bool is
// itself, Int is falsy at zero, String is falsy when empty, and every
// composite (List, Record, Ref, Method) is truthy even when empty. A nil
// Value is treated as Undefined. The mixin applicator's keep-existing check
// is defined in terms of this predicate.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Undefined:
		return false
	case Bool:
		return bool(val)
	case Int:
		return val != 0
	case String:
		return val != ""
	default:
		return true
	}
}

// Arg returns args[i], or Undefined when the position is absent. Operation
// bodies use it so call sites may under-apply without a bounds panic.
func Arg(args []Value, i int) Value {
	if i < 0 || i >= len(args) {
		return Undefined{}
	}
	if args[i] == nil {
		return Undefined{}
	}
	return args[i]
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Must use unicode/utf16.Encode for correct surrogate handling.
// Go's default string comparison uses UTF-8 which produces DIFFERENT order.
func compareKeysRFC8785(a, b string) int {
	// Convert entire strings to UTF-16 code units
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	// Compare code unit by code unit
	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}

	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
