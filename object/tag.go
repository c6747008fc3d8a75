package object

// Tag is an opaque capability mark. A fresh Tag is minted per NewTag call
// and its identity is the private cell pointer, so two independently created
// tags never compare equal even when given identical display IDs, and no
// tag can be forged outside this package. Tags are comparable and usable as
// map keys; copying a Tag copies the mark, not a new identity.
//
// The zero Tag is invalid: it stamps nothing and queries false everywhere.
type Tag struct {
	cell *tagCell
}

type tagCell struct {
	id string
}

// NewTag mints a fresh, unique tag. The id is display-only (logs, traces);
// uniqueness does not depend on it and collisions between display IDs do
// not make tags equal.
func NewTag(id string) Tag {
	return Tag{cell: &tagCell{id: id}}
}

// ID returns the tag's display identifier.
func (t Tag) ID() string {
	if t.cell == nil {
		return ""
	}
	return t.cell.id
}

// Valid reports whether the tag was minted by NewTag.
func (t Tag) Valid() bool {
	return t.cell != nil
}

// String implements fmt.Stringer for log output.
func (t Tag) String() string {
	if t.cell == nil {
		return "tag(invalid)"
	}
	return "tag(" + t.cell.id + ")"
}
