package object

import "fmt"

// Func is the implementation signature shared by every operation. recv is
// the receiver the call was bound to (a Ref for ordinary method calls,
// Undefined or nil for receiver-less calls) and args are the caller's
// arguments exactly as supplied. Use Arg to read positions that may be
// absent.
type Func func(recv Value, args []Value) (Value, error)

// Operation is a callable with a declared parameter arity. The arity is
// advisory at invocation time (calls may under- or over-apply, mirroring
// dynamic dispatch); enforcement is a decoration policy, not an invocation
// rule. Operations are immutable after construction and compared by
// identity, so the same *Operation installed on two targets is genuinely
// shared behavior.
type Operation struct {
	name  string
	arity int
	fn    Func
}

// NewOperation constructs an operation. The name is diagnostic only (logs,
// traces); the installed member name is whatever key a behavior set maps it
// under. Panics on a nil fn or negative arity, which are programmer errors.
func NewOperation(name string, arity int, fn Func) *Operation {
	if fn == nil {
		panic("object: NewOperation requires a non-nil func")
	}
	if arity < 0 {
		panic(fmt.Sprintf("object: NewOperation arity must be >= 0, got %d", arity))
	}
	return &Operation{name: name, arity: arity, fn: fn}
}

// Name returns the operation's diagnostic name.
func (op *Operation) Name() string { return op.name }

// Arity returns the declared parameter count.
func (op *Operation) Arity() int { return op.arity }

// Invoke calls the operation bound to recv with args passed through
// unchanged: no padding, no truncation, no arity check.
func (op *Operation) Invoke(recv Value, args ...Value) (Value, error) {
	return op.fn(recv, args)
}
