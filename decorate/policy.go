package decorate

import (
	"fmt"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Policy is a sealed invocation policy. Values come from the constructors
// below; the wrap method is unexported so no outside type can pose as a
// policy.
type Policy interface {
	// Name returns the policy's wire name, as used in behavior
	// declarations.
	Name() string

	wrap(st *Store, op *object.Operation) *object.Operation
}

// Wire names accepted by ParsePolicy.
const (
	PolicyRunAtMostOnce     = "run_at_most_once"
	PolicyRunAtMostN        = "run_at_most_n"
	PolicyMemoizeByReceiver = "memoize_by_receiver"
	PolicyRequireAll        = "require_all"
)

// Decorate wraps an operation with a policy, backed by a store created
// for this call alone. The wrapped operation reports the same name and
// declared arity as the original and forwards the receiver and arguments
// untouched on every permitted invocation.
//
// Panics on nil inputs, which are programmer errors.
func Decorate(op *object.Operation, p Policy) *object.Operation {
	if op == nil {
		panic("decorate: Decorate requires a non-nil operation")
	}
	if p == nil {
		panic("decorate: Decorate requires a non-nil policy")
	}
	return p.wrap(NewStore(), op)
}

// ParsePolicy resolves a policy wire name. n is the invocation budget for
// run_at_most_n and ignored by every other policy.
func ParsePolicy(name string, n int) (Policy, error) {
	switch name {
	case PolicyRunAtMostOnce:
		return RunAtMostOnce(), nil
	case PolicyRunAtMostN:
		if n < 0 {
			return nil, fmt.Errorf("policy %s: budget must be >= 0, got %d", name, n)
		}
		return RunAtMostN(n), nil
	case PolicyMemoizeByReceiver:
		return MemoizeByReceiver(), nil
	case PolicyRequireAll:
		return RequireAll(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// RunAtMostOnce invokes the operation on the first call per receiver and
// silently suppresses every later call, returning Undefined. Suppression
// is per owner identity: each receiver gets its own first call, and
// receiver-less calls share the sentinel's.
//
// The record is claimed before the operation runs, so a re-entrant call
// from inside the operation body is already suppressed, and a first call
// that errors still consumes the budget.
func RunAtMostOnce() Policy { return runAtMostOnce{} }

type runAtMostOnce struct{}

func (runAtMostOnce) Name() string { return PolicyRunAtMostOnce }

func (runAtMostOnce) wrap(st *Store, op *object.Operation) *object.Operation {
	return object.NewOperation(op.Name(), op.Arity(), func(recv object.Value, args []object.Value) (object.Value, error) {
		_, ran, err := st.Claim(recv)
		if err != nil {
			return object.Undefined{}, err
		}
		if ran {
			return object.Undefined{}, nil
		}
		return op.Invoke(recv, args...)
	})
}

// RunAtMostN generalizes RunAtMostOnce to an invocation budget of n per
// receiver. A budget of zero suppresses every call. Panics on a negative
// budget.
func RunAtMostN(n int) Policy {
	if n < 0 {
		panic(fmt.Sprintf("decorate: RunAtMostN budget must be >= 0, got %d", n))
	}
	return runAtMostN{n: n}
}

type runAtMostN struct {
	n int
}

func (runAtMostN) Name() string { return PolicyRunAtMostN }

func (p runAtMostN) wrap(st *Store, op *object.Operation) *object.Operation {
	return object.NewOperation(op.Name(), op.Arity(), func(recv object.Value, args []object.Value) (object.Value, error) {
		allowed := false
		err := st.Update(recv, func(rec *Record) {
			if rec.Count < p.n {
				rec.Count++
				allowed = true
			}
		})
		if err != nil {
			return object.Undefined{}, err
		}
		if !allowed {
			return object.Undefined{}, nil
		}
		return op.Invoke(recv, args...)
	})
}

// MemoizeByReceiver caches results per receiver, keyed by the canonical
// JSON of the argument list. Distinct receivers never share cache slots.
//
// Two deliberate edges: arguments that cannot serialize canonically
// (callable values) bypass the cache and invoke every time, and failed
// invocations are not cached, so the next call retries.
func MemoizeByReceiver() Policy { return memoizeByReceiver{} }

type memoizeByReceiver struct{}

func (memoizeByReceiver) Name() string { return PolicyMemoizeByReceiver }

func (memoizeByReceiver) wrap(st *Store, op *object.Operation) *object.Operation {
	return object.NewOperation(op.Name(), op.Arity(), func(recv object.Value, args []object.Value) (object.Value, error) {
		keyBytes, keyErr := object.MarshalCanonical(object.List(args))
		if keyErr != nil {
			return op.Invoke(recv, args...)
		}
		key := string(keyBytes)

		var cached object.Value
		hit := false
		if err := st.Update(recv, func(rec *Record) {
			if rec.Memo != nil {
				cached, hit = rec.Memo[key]
			}
		}); err != nil {
			return object.Undefined{}, err
		}
		if hit {
			return cached, nil
		}

		result, err := op.Invoke(recv, args...)
		if err != nil {
			return result, err
		}
		if uerr := st.Update(recv, func(rec *Record) {
			if rec.Memo == nil {
				rec.Memo = make(map[string]object.Value)
			}
			rec.Memo[key] = result
		}); uerr != nil {
			return object.Undefined{}, uerr
		}
		return result, nil
	})
}

// RequireAll gates invocation on the operation's declared arity: an
// under-arity call fails with MISSING_ARGUMENTS before the operation
// runs, surfacing the call-site bug, while extra arguments forward
// unharmed. The check preserves the receiver path and keeps no state.
func RequireAll() Policy { return requireAll{} }

type requireAll struct{}

func (requireAll) Name() string { return PolicyRequireAll }

func (requireAll) wrap(st *Store, op *object.Operation) *object.Operation {
	return object.NewOperation(op.Name(), op.Arity(), func(recv object.Value, args []object.Value) (object.Value, error) {
		if len(args) < op.Arity() {
			return object.Undefined{}, NewMissingArgumentsError(op.Name(), op.Arity(), len(args))
		}
		return op.Invoke(recv, args...)
	})
}
