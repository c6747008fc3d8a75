package mixin

import (
	"github.com/google/uuid"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// TagSource mints capability tags for new behavior sets. Tag identity never
// depends on the source; a source only controls the display IDs that end up
// in logs and traces.
type TagSource interface {
	NewTag() object.Tag
}

// UUIDSource mints tags with time-sortable UUIDv7 display IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tag IDs
// sortable by creation time, which is helpful when reading traces of
// behavior application.
//
// Uses github.com/google/uuid package for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDSource is stateless and safe for concurrent use.
type UUIDSource struct{}

// NewTag mints a fresh tag with a hyphenated UUIDv7 display ID.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDSource) NewTag() object.Tag {
	return object.NewTag(uuid.Must(uuid.NewV7()).String())
}
