package mixin

import (
	"fmt"
	"sort"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Shared is a shared-member definition: the value plus the enumerability
// the caller wants preserved on the set. Shared members may themselves be
// callable (an object.Method value).
type Shared struct {
	Value      object.Value
	Enumerable bool
}

// BehaviorSet is an immutable bundle of instance operations and shared
// members, bound 1:1 to a capability tag minted at construction.
//
// Instance operations are what Apply installs on targets. Shared members
// live on the set itself and are never copied to targets; they are the
// static/class-level side of the behavior. The two namespaces are distinct
// and may reuse names.
//
// Both input maps are copied at construction; later mutation of the
// caller's maps has no effect on the set.
type BehaviorSet struct {
	label  string
	tag    object.Tag
	ops    map[string]*object.Operation
	shared *object.Object
}

// Option configures behavior set construction.
type Option func(*config)

type config struct {
	label  string
	source TagSource
}

// WithLabel sets the diagnostic label used in logs, traces, and errors.
func WithLabel(label string) Option {
	return func(c *config) { c.label = label }
}

// WithTagSource overrides the capability tag source. Tests use this with a
// deterministic source so tag IDs are stable across runs.
func WithTagSource(source TagSource) Option {
	return func(c *config) { c.source = source }
}

// New constructs a behavior set from instance operations and shared
// members, minting a fresh capability tag. Fails with an
// INVALID_DEFINITION error on empty member names, nil operations, or nil
// shared values.
func New(instanceOps map[string]*object.Operation, shared map[string]Shared, opts ...Option) (*BehaviorSet, error) {
	cfg := config{source: UUIDSource{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	ops := make(map[string]*object.Operation, len(instanceOps))
	for name, op := range instanceOps {
		if name == "" {
			return nil, NewInvalidDefinitionError(cfg.label, name, "instance operation name must be non-empty")
		}
		if op == nil {
			return nil, NewInvalidDefinitionError(cfg.label, name, fmt.Sprintf("instance operation %q is nil", name))
		}
		ops[name] = op
	}

	sharedObj := object.New()
	for name, member := range shared {
		if name == "" {
			return nil, NewInvalidDefinitionError(cfg.label, name, "shared member name must be non-empty")
		}
		if member.Value == nil {
			return nil, NewInvalidDefinitionError(cfg.label, name, fmt.Sprintf("shared member %q has a nil value", name))
		}
		p := object.Property{Value: member.Value, Enumerable: member.Enumerable, Writable: true}
		if err := sharedObj.Define(name, p); err != nil {
			return nil, NewInvalidDefinitionError(cfg.label, name, err.Error())
		}
	}

	return &BehaviorSet{
		label:  cfg.label,
		tag:    cfg.source.NewTag(),
		ops:    ops,
		shared: sharedObj,
	}, nil
}

// Label returns the diagnostic label, which may be empty.
func (b *BehaviorSet) Label() string { return b.label }

// Tag returns the capability tag bound at construction.
func (b *BehaviorSet) Tag() object.Tag { return b.tag }

// Operations returns the instance operation names in sorted order.
func (b *BehaviorSet) Operations() []string {
	names := make([]string, 0, len(b.ops))
	for name := range b.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operation returns the named instance operation and whether it exists.
func (b *BehaviorSet) Operation(name string) (*object.Operation, bool) {
	op, ok := b.ops[name]
	return op, ok
}

// Shared returns the named shared member's value and whether it exists,
// enumerable or not.
func (b *BehaviorSet) Shared(name string) (object.Value, bool) {
	return b.shared.GetOwn(name)
}

// SharedMember returns the named shared member's full descriptor.
func (b *BehaviorSet) SharedMember(name string) (object.Property, bool) {
	return b.shared.Own(name)
}

// SharedKeys returns the enumerable shared member names in canonical
// order; non-enumerable shared members are deliberately invisible here,
// exactly as they are to naive enumeration.
func (b *BehaviorSet) SharedKeys() []string {
	return b.shared.Keys()
}

// OwnSharedKeys returns all shared member names, enumerable or not, in
// canonical order.
func (b *BehaviorSet) OwnSharedKeys() []string {
	return b.shared.OwnKeys()
}

// MembershipCheck reports whether candidate carries this set's capability
// tag, i.e. whether the set's instance operations were applied to it. This
// is the explicit substitute for a nominal type check. It never fails: nil
// and never-applied candidates report false.
func (b *BehaviorSet) MembershipCheck(candidate *object.Object) bool {
	if candidate == nil {
		return false
	}
	return candidate.HasStamp(b.tag)
}
