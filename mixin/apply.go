package mixin

import (
	"fmt"
	"log/slog"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Apply composes a behavior set into a target and returns the target for
// chaining.
//
// Each instance operation installs only if the target lacks an own, truthy
// member of that name; pre-existing specific behavior always beats the
// incoming generic one. Installed members are writable but non-enumerable.
// After installation the target is stamped with the set's capability tag.
// Shared members are not touched; they stay on the set.
//
// Apply is idempotent: a second application finds every member present and
// the stamp already set, and changes nothing.
//
// Failure is all-or-nothing with an INVALID_TARGET error: a nil or sealed
// target, or an own falsy read-only member that the install would have to
// replace, rejects the whole application with the target unmodified. The
// plan-then-install split below is what guarantees no partial mutation.
//
// The entire check-install-stamp sequence runs inside one object.Update
// transaction, so concurrent readers of the target never observe members
// without the stamp.
func Apply(b *BehaviorSet, target *object.Object) (*object.Object, error) {
	if b == nil {
		return nil, NewInvalidDefinitionError("", "", "behavior set is nil")
	}
	if target == nil {
		return nil, NewInvalidTargetError(b.label, "", "target is nil")
	}

	var installed, skipped []string
	err := target.Update(func(tx *object.Tx) error {
		if !tx.Extensible() {
			return NewInvalidTargetError(b.label, target.Label(), "target is not extensible")
		}

		// Plan phase: decide per member before mutating anything.
		names := b.Operations()
		install := make([]string, 0, len(names))
		for _, name := range names {
			existing, ok := tx.Own(name)
			if ok && object.Truthy(existing.Value) {
				skipped = append(skipped, name)
				continue
			}
			if ok && !existing.Writable {
				return NewInvalidTargetError(b.label, target.Label(),
					fmt.Sprintf("member %q is falsy but read-only", name))
			}
			install = append(install, name)
		}

		// Install phase: nothing below can fail on a planned member.
		for _, name := range install {
			p := object.Property{Value: object.Method{Op: b.ops[name]}, Enumerable: false, Writable: true}
			if err := tx.Define(name, p); err != nil {
				return NewInvalidTargetError(b.label, target.Label(),
					fmt.Sprintf("install %q: %v", name, err))
			}
		}
		installed = install

		if err := tx.Stamp(b.tag); err != nil {
			return NewInvalidTargetError(b.label, target.Label(), fmt.Sprintf("stamp: %v", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("behavior applied",
		"behavior", b.label,
		"tag", b.tag.ID(),
		"target", target.Label(),
		"installed", installed,
		"skipped", skipped)

	return target, nil
}
