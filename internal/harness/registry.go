package harness

import (
	"fmt"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Builtin constructs an operation body from a declaration's `with` block.
// Construction errors (missing or mistyped configuration) surface when the
// behavior set is built, not on first call.
type Builtin func(with map[string]object.Value) (object.Func, error)

// Registry maps the impl names used in behavior declarations to builtins.
// Declarations stay pure data this way; the only executable code in a
// scenario is what the registry hands out.
type Registry struct {
	impls map[string]Builtin
}

// NewRegistry returns a registry with the standard builtins installed:
// set_field, get_field, record_call, constant, add, fail, and noop.
func NewRegistry() *Registry {
	r := &Registry{impls: make(map[string]Builtin)}
	r.Register("set_field", builtinSetField)
	r.Register("get_field", builtinGetField)
	r.Register("record_call", builtinRecordCall)
	r.Register("constant", builtinConstant)
	r.Register("add", builtinAdd)
	r.Register("fail", builtinFail)
	r.Register("noop", builtinNoop)
	return r
}

// Register adds or replaces a builtin under the given impl name.
func (r *Registry) Register(name string, b Builtin) {
	r.impls[name] = b
}

// Resolve constructs the body for an impl name and its configuration.
func (r *Registry) Resolve(name string, with map[string]object.Value) (object.Func, error) {
	b, ok := r.impls[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin %q", name)
	}
	fn, err := b(with)
	if err != nil {
		return nil, fmt.Errorf("builtin %q: %w", name, err)
	}
	return fn, nil
}

// withString extracts a required string key from a with block.
func withString(with map[string]object.Value, key string) (string, error) {
	v, ok := with[key]
	if !ok {
		return "", fmt.Errorf("with.%s is required", key)
	}
	s, ok := v.(object.String)
	if !ok {
		return "", fmt.Errorf("with.%s must be a string", key)
	}
	return string(s), nil
}

// receiverObject unwraps a reference receiver. Operations that touch
// instance state need one; data values and the undefined receiver do not
// qualify.
func receiverObject(recv object.Value) (*object.Object, error) {
	ref, ok := recv.(object.Ref)
	if !ok || ref.Target == nil {
		return nil, fmt.Errorf("operation needs an object receiver")
	}
	return ref.Target, nil
}

// builtinSetField stores the first argument under the configured field on
// the receiver and returns the stored value.
func builtinSetField(with map[string]object.Value) (object.Func, error) {
	field, err := withString(with, "field")
	if err != nil {
		return nil, err
	}
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		target, err := receiverObject(recv)
		if err != nil {
			return nil, err
		}
		v := object.Arg(args, 0)
		if err := target.Set(field, v); err != nil {
			return nil, err
		}
		return v, nil
	}, nil
}

// builtinGetField reads the configured field from the receiver. Absent
// fields read as the undefined value, never as an error.
func builtinGetField(with map[string]object.Value) (object.Func, error) {
	field, err := withString(with, "field")
	if err != nil {
		return nil, err
	}
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		target, err := receiverObject(recv)
		if err != nil {
			return nil, err
		}
		return target.Get(field), nil
	}, nil
}

// builtinRecordCall increments an integer counter field on the receiver
// and returns the new count. The read-increment-write runs inside one
// object transaction. With no receiver there is nothing to count against;
// the body returns the undefined value and relies on the journal's
// execution records instead.
func builtinRecordCall(with map[string]object.Value) (object.Func, error) {
	field, err := withString(with, "field")
	if err != nil {
		return nil, err
	}
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		ref, ok := recv.(object.Ref)
		if !ok || ref.Target == nil {
			return object.Undefined{}, nil
		}
		var count object.Int
		err := ref.Target.Update(func(tx *object.Tx) error {
			count = 1
			if prev, ok := tx.GetOwn(field); ok {
				if n, ok := prev.(object.Int); ok {
					count = n + 1
				}
			}
			return tx.Define(field, object.Property{Value: count, Enumerable: true, Writable: true})
		})
		if err != nil {
			return nil, err
		}
		return count, nil
	}, nil
}

// builtinConstant always returns the configured value, receiver or not.
func builtinConstant(with map[string]object.Value) (object.Func, error) {
	v, ok := with["value"]
	if !ok {
		return nil, fmt.Errorf("with.value is required")
	}
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		return v, nil
	}, nil
}

// builtinAdd sums its integer arguments. The body is pure, which makes it
// the natural partner for the memoize_by_receiver policy in scenarios.
func builtinAdd(with map[string]object.Value) (object.Func, error) {
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		var sum object.Int
		for i, a := range args {
			n, ok := a.(object.Int)
			if !ok {
				return nil, fmt.Errorf("add: argument %d is not an int", i)
			}
			sum += n
		}
		return sum, nil
	}, nil
}

// builtinFail always returns an error carrying the configured message.
// Scenarios use it to drive error paths: failed call rows in the journal
// and the budget-consuming first call under run_at_most_once.
func builtinFail(with map[string]object.Value) (object.Func, error) {
	message, err := withString(with, "message")
	if err != nil {
		return nil, err
	}
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		return nil, fmt.Errorf("%s", message)
	}, nil
}

// builtinNoop does nothing and returns the undefined value.
func builtinNoop(with map[string]object.Value) (object.Func, error) {
	return func(recv object.Value, args []object.Value) (object.Value, error) {
		return object.Undefined{}, nil
	}, nil
}
