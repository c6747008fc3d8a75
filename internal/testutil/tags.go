package testutil

import (
	"fmt"
	"sync"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// SequentialTagSource mints capability tags with predictable display IDs.
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario with the same SequentialTagSource produces
// byte-identical traces. Tag identity is still fresh per mint, so
// uniqueness and membership semantics are untouched; only the display IDs
// are predictable.
//
// Thread-safety: SequentialTagSource is safe for concurrent use via
// internal mutex.
type SequentialTagSource struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTagSource creates a source minting IDs prefix-0001,
// prefix-0002, and so on.
//
// If prefix is empty, "tag" is used.
func NewSequentialTagSource(prefix string) *SequentialTagSource {
	if prefix == "" {
		prefix = "tag"
	}
	return &SequentialTagSource{prefix: prefix}
}

// NewTag mints the next tag in the sequence.
//
// Implements mixin.TagSource.
func (s *SequentialTagSource) NewTag() object.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return object.NewTag(fmt.Sprintf("%s-%04d", s.prefix, s.n))
}
