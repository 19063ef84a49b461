package bridge

import "github.com/grimeditor/grim/internal/engine"

// BufferID identifies a buffer. Ids are assigned monotonically starting at 1.
type BufferID uint32

// Range is a byte-offset range; Start must be <= End.
type Range = engine.Range

// Cursor is a buffer-relative position expressed both as line/column and as
// a byte offset. ByteOffset is authoritative; Line/Column are derived from
// it via the buffer's rope.
type Cursor struct {
	Line       uint32
	Column     uint32
	ByteOffset int64
}

// Selection is a normalized byte range (Start <= End). A nil *Selection
// means no active selection.
type Selection struct {
	Start int64
	End   int64
}

// Normalize returns sel with Start <= End, swapping if necessary.
func (s Selection) Normalize() Selection {
	if s.Start > s.End {
		return Selection{Start: s.End, End: s.Start}
	}
	return s
}
