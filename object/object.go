package object

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Substrate-level failure conditions. Callers branch with errors.Is; the
// composition layers wrap these into their own coded errors.
var (
	// ErrSealed is returned when a new property or stamp would be added to
	// a non-extensible object.
	ErrSealed = errors.New("object is not extensible")

	// ErrReadOnly is returned when a non-writable property would be
	// redefined or assigned.
	ErrReadOnly = errors.New("property is not writable")

	// ErrInvalidTag is returned when a zero Tag is stamped.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrNotCallable is returned by Call when the named member is absent
	// or does not hold a Method.
	ErrNotCallable = errors.New("member is not callable")
)

// Property is a property descriptor: the held value plus its flags.
// Enumerable controls visibility to Keys and Snapshot; Writable gates
// assignment and redefinition.
type Property struct {
	Value      Value
	Enumerable bool
	Writable   bool
}

// Object is a mutable dynamic object: an own-property table with
// per-property flags, a one-way extensibility latch, and a capability
// stamp table. There is no delegation; every lookup is an own lookup.
//
// All methods are safe for concurrent use; each takes the object's lock
// for the duration of one operation. Compound mutations that must be
// indivisible (notably behavior application: install members, then stamp)
// go through Update, which holds the lock across the whole closure.
type Object struct {
	mu     sync.Mutex
	label  string
	props  map[string]Property
	stamps map[Tag]struct{}
	sealed bool
}

// New creates an empty, extensible, unlabeled object.
func New() *Object {
	return &Object{
		props:  make(map[string]Property),
		stamps: make(map[Tag]struct{}),
	}
}

// NewLabeled creates an empty, extensible object with a diagnostic label.
// Labels appear in traces and reference serialization; they carry no
// identity semantics (two objects may share a label and remain distinct).
func NewLabeled(label string) *Object {
	o := New()
	o.label = label
	return o
}

// Label returns the diagnostic label, which may be empty.
func (o *Object) Label() string { return o.label }

// Extensible reports whether new properties and stamps may still be added.
func (o *Object) Extensible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.sealed
}

// PreventExtensions flips the one-way extensibility latch and returns the
// object for chaining. Existing properties remain readable and, where
// writable, assignable.
func (o *Object) PreventExtensions() *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sealed = true
	return o
}

// Define installs or redefines a property with an explicit descriptor.
// Defining a new property on a sealed object fails with ErrSealed;
// redefining a non-writable property fails with ErrReadOnly.
func (o *Object) Define(name string, p Property) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.defineLocked(name, p)
}

// Set assigns with plain-assignment semantics: an existing writable
// property keeps its flags and takes the new value; a fresh property is
// created enumerable and writable.
func (o *Object) Set(name string, v Value) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.props[name]; ok {
		if !existing.Writable {
			return fmt.Errorf("set %q: %w", name, ErrReadOnly)
		}
		existing.Value = v
		o.props[name] = existing
		return nil
	}
	if o.sealed {
		return fmt.Errorf("set %q: %w", name, ErrSealed)
	}
	o.props[name] = Property{Value: v, Enumerable: true, Writable: true}
	return nil
}

// Get returns the named property's value, or Undefined when absent.
func (o *Object) Get(name string) Value {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.props[name]; ok {
		return p.Value
	}
	return Undefined{}
}

// GetOwn returns the named property's value and whether it exists.
func (o *Object) GetOwn(name string) (Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.props[name]
	if !ok {
		return Undefined{}, false
	}
	return p.Value, true
}

// Own returns the full property descriptor and whether it exists.
func (o *Object) Own(name string) (Property, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.props[name]
	return p, ok
}

// HasOwn reports whether the object owns the named property.
func (o *Object) HasOwn(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.props[name]
	return ok
}

// Keys returns the names of own enumerable properties in canonical
// (RFC 8785) order. Installed behavior operations are non-enumerable, so
// naive enumeration never picks them up.
func (o *Object) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	keys := make([]string, 0, len(o.props))
	for k, p := range o.props {
		if p.Enumerable {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// OwnKeys returns all own property names, enumerable or not, in canonical
// order.
func (o *Object) OwnKeys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	keys := make([]string, 0, len(o.props))
	for k := range o.props {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Snapshot returns the values of own enumerable properties as a Record.
// The copy is shallow: composite values are shared with the object.
func (o *Object) Snapshot() Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := make(Record, len(o.props))
	for k, p := range o.props {
		if p.Enumerable {
			r[k] = p.Value
		}
	}
	return r
}

// Stamp marks the object with a capability tag. Stamping is idempotent and
// a stamp is never cleared, so re-stamping succeeds even on a sealed
// object; adding a fresh stamp to a sealed object fails with ErrSealed.
// A zero tag fails with ErrInvalidTag.
func (o *Object) Stamp(t Tag) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stampLocked(t)
}

// HasStamp reports whether the object carries the tag. It never fails:
// unstamped objects and zero tags simply report false.
func (o *Object) HasStamp(t Tag) bool {
	if !t.Valid() {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.stamps[t]
	return ok
}

// Call looks up the named member and invokes it bound to this object as
// receiver. The lock is released before the operation body runs, so bodies
// may freely read and mutate the receiver. Absent or non-callable members
// fail with ErrNotCallable.
func (o *Object) Call(name string, args ...Value) (Value, error) {
	o.mu.Lock()
	p, ok := o.props[name]
	o.mu.Unlock()

	if !ok {
		return Undefined{}, fmt.Errorf("call %q: %w", name, ErrNotCallable)
	}
	m, ok := p.Value.(Method)
	if !ok || m.Op == nil {
		return Undefined{}, fmt.Errorf("call %q: %w", name, ErrNotCallable)
	}
	return m.Op.Invoke(Ref{Target: o}, args...)
}

// Tx is a view of an object whose lock is already held. It exposes the
// subset of operations compound mutations need; methods never lock.
type Tx struct {
	o *Object
}

// Update runs fn while holding the object's lock, making the whole closure
// indivisible relative to every other method on the object. fn must use
// only the Tx view; calling exported Object methods from inside fn
// deadlocks. The first error aborts the closure and is returned unchanged.
func (o *Object) Update(fn func(tx *Tx) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(&Tx{o: o})
}

// Extensible reports the extensibility latch.
func (tx *Tx) Extensible() bool { return !tx.o.sealed }

// GetOwn returns the named property's value and whether it exists.
func (tx *Tx) GetOwn(name string) (Value, bool) {
	p, ok := tx.o.props[name]
	if !ok {
		return Undefined{}, false
	}
	return p.Value, true
}

// Own returns the full property descriptor and whether it exists.
func (tx *Tx) Own(name string) (Property, bool) {
	p, ok := tx.o.props[name]
	return p, ok
}

// Define installs or redefines a property, with Define's semantics.
func (tx *Tx) Define(name string, p Property) error {
	return tx.o.defineLocked(name, p)
}

// Stamp marks the object, with Stamp's semantics.
func (tx *Tx) Stamp(t Tag) error {
	return tx.o.stampLocked(t)
}

// HasStamp reports whether the object carries the tag.
func (tx *Tx) HasStamp(t Tag) bool {
	if !t.Valid() {
		return false
	}
	_, ok := tx.o.stamps[t]
	return ok
}

func (o *Object) defineLocked(name string, p Property) error {
	if existing, ok := o.props[name]; ok {
		if !existing.Writable {
			return fmt.Errorf("define %q: %w", name, ErrReadOnly)
		}
		o.props[name] = p
		return nil
	}
	if o.sealed {
		return fmt.Errorf("define %q: %w", name, ErrSealed)
	}
	o.props[name] = p
	return nil
}

func (o *Object) stampLocked(t Tag) error {
	if !t.Valid() {
		return ErrInvalidTag
	}
	if _, ok := o.stamps[t]; ok {
		return nil
	}
	if o.sealed {
		return fmt.Errorf("stamp %s: %w", t, ErrSealed)
	}
	o.stamps[t] = struct{}{}
	return nil
}
