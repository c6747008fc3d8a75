// Package object provides the dynamic value and object substrate for
// behavior composition.
//
// This package is the foundational layer. Every other package imports
// object; object imports nothing internal. It deliberately implements a
// minimal object model: own properties only, no delegation chains, no
// accessors, no deletion. Composition semantics (behavior sets, mixin
// application, decoration) live in the mixin and decorate packages.
//
// Key design constraints:
//   - NO float values anywhere - use Int (int64) for numbers, preserving
//     canonical JSON determinism
//   - Undefined is a first-class value: absent property reads, missing
//     arguments, and suppressed invocations all yield Undefined
//   - Property enumeration is deterministic (RFC 8785 key order), never
//     map iteration order
//   - Capability stamps are identity-based and set at most once; they are
//     not properties and never enumerate
package object
