// Package decorate wraps operations with per-receiver private state.
//
// Decorate(op, policy) returns a new operation that enforces an invocation
// policy (run at most once, run at most n times, memoize, require full
// arity) while preserving the receiver and arguments of every call. All
// policy state lives in a Store keyed by receiver identity, never in a
// captured scalar: a counter closed over by the wrapper would be shared by
// every receiver of the wrapped operation, which is exactly the bug this
// package exists to make unrepresentable.
//
// Store keys are reference identities. Receiver-less invocations route
// through one reserved process-wide sentinel identity, so a repeated
// receiver-less call still remembers its own history without colliding
// with any real receiver. Value-kind receivers (strings, ints, records)
// have no identity and are rejected with INVALID_IDENTITY_KIND.
//
// Entries are weakly associated with their owners via weak pointers and
// runtime cleanups: a store never keeps an otherwise-unreachable receiver
// alive, and an entry is evicted once its owner is collected. One caveat
// follows from that design: state that strongly references its own owner
// (a memoized result holding a Ref back to the receiver) pins the owner
// and defeats eviction for that entry.
//
// Every Decorate call creates its own Store. Two independently created
// decorators never share state, even wrapping the same operation and
// applied to the same receiver.
package decorate
