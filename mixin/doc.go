// Package mixin implements behavior sets and their application to objects.
//
// A BehaviorSet is a declarative bundle: instance operations that get
// installed on application targets, shared members that live on the set
// itself (the class-side analog, never copied to targets), and one
// capability tag minted at construction. Apply composes a set into a
// target; MembershipCheck is the capability query that replaces nominal
// type checks.
//
// Application semantics are deliberately conservative:
//   - Non-destructive: a target's own, truthy member always wins over an
//     incoming instance operation (first definition wins)
//   - Idempotent: re-applying a set to the same target is observably a
//     no-op
//   - All-or-nothing: a rejected target (sealed, or holding a read-only
//     member the install would need to replace) is left completely
//     unmodified
//   - Installed members are writable but non-enumerable, so owners may
//     replace them later and naive enumeration never sees them
//
// The install-then-stamp sequence runs inside a single object.Update
// transaction, making application indivisible per target on a
// multi-threaded host.
package mixin
