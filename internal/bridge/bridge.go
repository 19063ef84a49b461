package bridge

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/grimeditor/grim/internal/bufferbus"
	"github.com/grimeditor/grim/internal/engine"
	"github.com/grimeditor/grim/internal/engine/cursor"
)

type bufferEntry struct {
	id       BufferID
	eng      *engine.Engine
	path     string
	filetype string
	modified bool
	tick     uint64
}

// Bridge is the editor-context bridge: a registry of buffers, each backed
// by its own engine.Engine, with typed change events dispatched on a
// bufferbus.Bus as mutations occur.
type Bridge struct {
	mu      sync.Mutex
	buffers map[BufferID]*bufferEntry
	nextID  uint32
	current BufferID
	events  *bufferbus.Bus
}

// New creates an empty Bridge. events may be nil, in which case mutations
// are applied but no events are emitted (useful for tests of the buffer
// mechanics in isolation).
func New(events *bufferbus.Bus) *Bridge {
	return &Bridge{
		buffers: make(map[BufferID]*bufferEntry),
		events:  events,
	}
}

func filetypeFromPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

// Open creates a new buffer from content, optionally associated with path,
// and returns its id. If this is the first open buffer it becomes current.
// Emits buf_new.
func (b *Bridge) Open(path, content string) BufferID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := BufferID(b.nextID)
	entry := &bufferEntry{
		id:       id,
		eng:      engine.New(engine.WithContent(content)),
		path:     path,
		filetype: filetypeFromPath(path),
	}
	b.buffers[id] = entry

	if len(b.buffers) == 1 {
		b.current = id
	}

	b.emit(bufferbus.BufNew, id, nil)
	return id
}

// Close destroys a buffer. Emits buf_delete then buf_wipe_out.
func (b *Bridge) Close(id BufferID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buffers[id]; !ok {
		return ErrInvalidBuffer
	}

	delete(b.buffers, id)
	if b.current == id {
		b.current = 0
	}

	b.emit(bufferbus.BufDelete, id, nil)
	b.emit(bufferbus.BufWipeOut, id, nil)
	return nil
}

// Current returns the id of the active buffer, or 0 if none is open.
func (b *Bridge) Current() BufferID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// SetCurrent switches the active buffer, emitting buf_leave for the
// previous buffer (if any) and buf_enter for the new one.
func (b *Bridge) SetCurrent(id BufferID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buffers[id]; !ok {
		return ErrInvalidBuffer
	}

	prev := b.current
	if prev == id {
		return nil
	}
	if prev != 0 {
		b.emit(bufferbus.BufLeave, prev, nil)
	}
	b.current = id
	b.emit(bufferbus.BufEnter, id, nil)
	return nil
}

func (b *Bridge) lookup(id BufferID) (*bufferEntry, error) {
	e, ok := b.buffers[id]
	if !ok {
		return nil, ErrInvalidBuffer
	}
	return e, nil
}

// GetContent returns the full text of buffer id.
func (b *Bridge) GetContent(id BufferID) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	return []byte(e.eng.Text()), nil
}

// SetContent replaces the full text of buffer id.
func (b *Bridge) SetContent(id BufferID, content []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return err
	}

	oldLen := e.eng.Len()
	oldText := e.eng.Text()
	if err := e.eng.SetContent(string(content)); err != nil {
		return err
	}
	e.modified = true
	e.tick++

	rng := bufferbus.Range{Start: 0, End: int64(oldLen)}
	b.notifyChange(id, rng, len(content), bufferbus.ChangeReplace)
	b.emit(bufferbus.TextDeleted, id, bufferbus.TextDeletedPayload{BufferID: uint32(id), Range: rng, OldText: oldText})
	b.emit(bufferbus.TextInserted, id, bufferbus.TextInsertedPayload{BufferID: uint32(id), Offset: 0, Text: string(content)})
	b.emit(bufferbus.TextChanged, id, bufferbus.BufferChange{BufferID: uint32(id), Range: rng, InsertedLen: len(content), Kind: bufferbus.ChangeReplace})
	return nil
}

// GetLine returns the text of a single line (without its newline).
func (b *Bridge) GetLine(id BufferID, line uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	if line >= e.eng.LineCount() {
		return nil, ErrOutOfRange
	}
	return []byte(e.eng.LineText(line)), nil
}

// Insert inserts text at offset in buffer id.
func (b *Bridge) Insert(id BufferID, offset int64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return err
	}
	if offset < 0 || offset > int64(e.eng.Len()) {
		return ErrOutOfRange
	}

	if _, err := e.eng.Insert(engine.ByteOffset(offset), string(data)); err != nil {
		return translateEngineErr(err)
	}
	e.modified = true
	e.tick++

	rng := bufferbus.Range{Start: offset, End: offset}
	b.notifyChange(id, rng, len(data), bufferbus.ChangeInsert)
	b.emit(bufferbus.TextInserted, id, bufferbus.TextInsertedPayload{BufferID: uint32(id), Offset: offset, Text: string(data)})
	b.emit(bufferbus.TextChanged, id, bufferbus.BufferChange{BufferID: uint32(id), Range: rng, InsertedLen: len(data), Kind: bufferbus.ChangeInsert})
	return nil
}

// Delete removes the bytes in r from buffer id.
func (b *Bridge) Delete(id BufferID, r Range) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return err
	}
	if r.End > engine.ByteOffset(e.eng.Len()) || r.Start > r.End || r.Start < 0 {
		return ErrOutOfRange
	}

	oldText := e.eng.TextRange(r.Start, r.End)
	if err := e.eng.Delete(r.Start, r.End); err != nil {
		return translateEngineErr(err)
	}
	e.modified = true
	e.tick++

	rng := bufferbus.Range{Start: int64(r.Start), End: int64(r.End)}
	b.notifyChange(id, rng, 0, bufferbus.ChangeDelete)
	b.emit(bufferbus.TextDeleted, id, bufferbus.TextDeletedPayload{BufferID: uint32(id), Range: rng, OldText: oldText})
	b.emit(bufferbus.TextChanged, id, bufferbus.BufferChange{BufferID: uint32(id), Range: rng, InsertedLen: 0, Kind: bufferbus.ChangeDelete})
	return nil
}

// Replace overwrites the bytes in r with data in buffer id. The rope
// mutation is atomic; observers see it as a TextDeleted for r followed by
// a TextInserted for the replacement text, matching prior observable
// delete-then-insert semantics.
func (b *Bridge) Replace(id BufferID, r Range, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return err
	}
	if r.End > engine.ByteOffset(e.eng.Len()) || r.Start > r.End || r.Start < 0 {
		return ErrOutOfRange
	}

	oldText := e.eng.TextRange(r.Start, r.End)
	if _, err := e.eng.Replace(r.Start, r.End, string(data)); err != nil {
		return translateEngineErr(err)
	}
	e.modified = true
	e.tick++

	rng := bufferbus.Range{Start: int64(r.Start), End: int64(r.End)}
	b.notifyChange(id, rng, len(data), bufferbus.ChangeReplace)
	b.emit(bufferbus.TextDeleted, id, bufferbus.TextDeletedPayload{BufferID: uint32(id), Range: rng, OldText: oldText})
	b.emit(bufferbus.TextInserted, id, bufferbus.TextInsertedPayload{BufferID: uint32(id), Offset: int64(r.Start), Text: string(data)})
	b.emit(bufferbus.TextChanged, id, bufferbus.BufferChange{BufferID: uint32(id), Range: rng, InsertedLen: len(data), Kind: bufferbus.ChangeReplace})
	return nil
}

// Save clears the modified flag, emitting buf_write_pre/buf_write_post
// around the (no-op, I/O-external) save point.
func (b *Bridge) Save(id BufferID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(id)
	if err != nil {
		return err
	}
	b.emit(bufferbus.BufWritePre, id, nil)
	e.modified = false
	b.emit(bufferbus.BufWritePost, id, nil)
	return nil
}

// Modified reports whether buffer id has unsaved changes.
func (b *Bridge) Modified(id BufferID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.lookup(id)
	if err != nil {
		return false, err
	}
	return e.modified, nil
}

// ChangeTick returns the monotonic mutation counter for buffer id.
func (b *Bridge) ChangeTick(id BufferID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.lookup(id)
	if err != nil {
		return 0, err
	}
	return e.tick, nil
}

// Path returns the file path associated with buffer id, if any.
func (b *Bridge) Path(id BufferID) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.lookup(id)
	if err != nil {
		return "", err
	}
	return e.path, nil
}

// Filetype returns the filetype derived from buffer id's path extension.
func (b *Bridge) Filetype(id BufferID) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, err := b.lookup(id)
	if err != nil {
		return "", err
	}
	return e.filetype, nil
}

// GetCursor returns the primary cursor of the current buffer.
func (b *Bridge) GetCursor() (Cursor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.currentEntry()
	if err != nil {
		return Cursor{}, err
	}
	offset := e.eng.PrimaryCursor()
	point := e.eng.OffsetToPoint(offset)
	return Cursor{Line: point.Line, Column: point.Column, ByteOffset: int64(offset)}, nil
}

// SetCursor moves the primary cursor of the current buffer to pos, clamped
// to the buffer's length, and recomputes line/column.
func (b *Bridge) SetCursor(pos int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.currentEntry()
	if err != nil {
		return err
	}
	if pos < 0 {
		pos = 0
	}
	if max := int64(e.eng.Len()); pos > max {
		pos = max
	}
	e.eng.SetPrimaryCursor(engine.ByteOffset(pos))
	b.emit(bufferbus.CursorMoved, e.id, bufferbus.CursorMovedPayload{
		BufferID:   uint32(e.id),
		ByteOffset: pos,
	})
	return nil
}

// GetSelection returns the normalized selection of the current buffer, or
// nil if the cursor has no extent.
func (b *Bridge) GetSelection() (*Selection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.currentEntry()
	if err != nil {
		return nil, err
	}
	sel := e.eng.PrimarySelection()
	if sel.IsEmpty() {
		return nil, nil
	}
	return &Selection{Start: int64(sel.Start()), End: int64(sel.End())}, nil
}

// SetSelection sets the selection of the current buffer. A nil sel clears
// both anchors, collapsing the selection to a cursor.
func (b *Bridge) SetSelection(sel *Selection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.currentEntry()
	if err != nil {
		return err
	}

	if sel == nil {
		cur := e.eng.PrimaryCursor()
		e.eng.SetPrimarySelection(cursor.NewCursorSelection(cur))
		return nil
	}

	norm := sel.Normalize()
	e.eng.SetPrimarySelection(cursor.NewRangeSelection(engine.Range{
		Start: engine.ByteOffset(norm.Start),
		End:   engine.ByteOffset(norm.End),
	}))
	return nil
}

func (b *Bridge) currentEntry() (*bufferEntry, error) {
	if b.current == 0 {
		return nil, ErrNoCurrentBuffer
	}
	return b.lookup(b.current)
}

func (b *Bridge) notifyChange(id BufferID, rng bufferbus.Range, insertedLen int, kind bufferbus.ChangeKind) {
	// Step (4) of §4.1: emit a BufferChange to whatever is listening before
	// the typed text_inserted/text_deleted/text_changed events go out in
	// step (5). Routed through the same bus under a dedicated topic so
	// low-level change trackers (e.g. highlight invalidation) can subscribe
	// without also taking every typed plugin event.
	if b.events == nil {
		return
	}
	b.events.Emit(bufferChangeTopic, bufferbus.BufferChange{
		BufferID:    uint32(id),
		Range:       rng,
		InsertedLen: insertedLen,
		Kind:        kind,
	})
}

// bufferChangeTopic is the low-level change-notification topic distinct
// from the plugin-facing typed events (text_inserted/text_deleted/
// text_changed), matching §4.1 step (4)'s "registered notifier".
const bufferChangeTopic bufferbus.EventType = "buffer_change"

func (b *Bridge) emit(eventType bufferbus.EventType, id BufferID, payload any) {
	if b.events == nil {
		return
	}
	if payload == nil {
		payload = struct{ BufferID uint32 }{BufferID: uint32(id)}
	}
	b.events.Emit(eventType, payload)
}

func translateEngineErr(err error) error {
	switch err {
	case engine.ErrOffsetOutOfRange, engine.ErrRangeInvalid:
		return ErrOutOfRange
	default:
		return err
	}
}
