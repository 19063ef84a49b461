package bufferbus

// EventType names a point in the editor lifecycle that plugins or internal
// subsystems may subscribe to. The fixed set below covers buffer lifecycle,
// text change, insert-mode, cursor, completion, window, and mode-change
// events. Any other string is accepted too ("user-defined" events) — the
// bus does not validate EventType against this list.
type EventType string

// Buffer lifecycle events.
const (
	BufNew      EventType = "buf_new"
	BufReadPre  EventType = "buf_read_pre"
	BufReadPost EventType = "buf_read_post"

	BufWritePre  EventType = "buf_write_pre"
	BufWritePost EventType = "buf_write_post"

	BufEnter   EventType = "buf_enter"
	BufLeave   EventType = "buf_leave"
	BufDelete  EventType = "buf_delete"
	BufWipeOut EventType = "buf_wipe_out"
)

// Text change events.
const (
	TextChanged  EventType = "text_changed"
	TextChangedI EventType = "text_changed_i"
	TextChangedP EventType = "text_changed_p"
	TextYankPost EventType = "text_yank_post"
)

// Insert-mode events.
const (
	InsertEnter    EventType = "insert_enter"
	InsertLeave    EventType = "insert_leave"
	InsertLeavePre EventType = "insert_leave_pre"
	InsertCharPre  EventType = "insert_char_pre"
)

// Cursor events.
const (
	CursorMoved  EventType = "cursor_moved"
	CursorMovedI EventType = "cursor_moved_i"
	CursorHold   EventType = "cursor_hold"
)

// Misc events.
const (
	Completion  EventType = "completion"
	Window      EventType = "window"
	ModeChanged EventType = "mode_changed"
)

// Buffer-mutation events emitted by the bridge layer on every insert,
// delete, or replace (§4.1). A replace emits TextDeleted for the
// overwritten range followed by TextInserted for the new text, preserving
// the observable delete-then-insert semantics callers already depend on.
const (
	TextInserted EventType = "text_inserted"
	TextDeleted  EventType = "text_deleted"
)

// ChangeKind categorizes a BufferChange payload.
type ChangeKind uint8

const (
	ChangeInsert ChangeKind = iota
	ChangeDelete
	ChangeReplace
)

// String returns a human-readable change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// BufferChange is the payload for low-level buffer mutation notifications
// (distinct from the higher-level text_changed/text_inserted/text_deleted
// events, which carry typed payloads below). Payloads borrow string data
// from the emitter; listeners that suspend or store the payload must copy
// any byte slices first.
type BufferChange struct {
	BufferID    uint32
	Range       Range
	InsertedLen int
	Kind        ChangeKind
}

// Range is a byte-offset range, start inclusive and end exclusive.
type Range struct {
	Start int64
	End   int64
}

// TextInsertedPayload is the payload for the TextInserted event.
type TextInsertedPayload struct {
	BufferID uint32
	Offset   int64
	Text     string
}

// TextDeletedPayload is the payload for the TextDeleted event.
type TextDeletedPayload struct {
	BufferID uint32
	Range    Range
	OldText  string
}

// CursorMovedPayload is the payload for cursor_moved / cursor_moved_i.
type CursorMovedPayload struct {
	BufferID   uint32
	Line       uint32
	Column     uint32
	ByteOffset int64
}
