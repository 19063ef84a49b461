package bufferbus

import "sort"

// Handler processes an event payload. A returned error is logged and does
// not stop delivery to the remaining listeners for that event.
type Handler func(payload any) error

// ErrorHook is invoked whenever a handler returns an error or panics.
// The default hook discards the error; callers wanting visibility into
// misbehaving plugins should install one that logs eventType/pluginID/err.
type ErrorHook func(eventType EventType, pluginID string, err error)

// DefaultErrorHook discards handler errors. Installed by default so a bus
// constructed with no options never panics on a bad handler.
func DefaultErrorHook(EventType, string, error) {}

type listener struct {
	pluginID string
	handler  Handler
	priority int
	once     bool
	seq      uint64
	removed  bool
}

type queuedEmit struct {
	eventType EventType
	payload   any
}

// Bus is the buffer-event pub/sub described by the editor's BufferEventBus
// component. It is not safe for concurrent use — emission and registration
// must all happen on the editor's main goroutine (see package doc).
type Bus struct {
	listeners  map[EventType][]*listener
	seq        uint64
	batchDepth int
	queue      []queuedEmit
	onError    ErrorHook
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		listeners: make(map[EventType][]*listener),
		onError:   DefaultErrorHook,
	}
}

// SetErrorHook installs a callback invoked when a handler errors or panics.
func (b *Bus) SetErrorHook(hook ErrorHook) {
	if hook == nil {
		hook = DefaultErrorHook
	}
	b.onError = hook
}

// On registers handler for eventType under pluginID at the given priority.
// Listeners for an event fire in descending priority order; ties preserve
// registration order.
func (b *Bus) On(eventType EventType, pluginID string, handler Handler, priority int) error {
	if handler == nil {
		return ErrNilHandler
	}
	if pluginID == "" {
		return ErrEmptyPluginID
	}

	b.seq++
	l := &listener{
		pluginID: pluginID,
		handler:  handler,
		priority: priority,
		seq:      b.seq,
	}
	b.insert(eventType, l)
	return nil
}

// Once registers a single-fire listener at priority 0. It is automatically
// removed after its first invocation (whether or not the handler errored).
func (b *Bus) Once(eventType EventType, pluginID string, handler Handler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if pluginID == "" {
		return ErrEmptyPluginID
	}

	b.seq++
	l := &listener{
		pluginID: pluginID,
		handler:  handler,
		priority: 0,
		once:     true,
		seq:      b.seq,
	}
	b.insert(eventType, l)
	return nil
}

func (b *Bus) insert(eventType EventType, l *listener) {
	ls := append(b.listeners[eventType], l)
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].priority != ls[j].priority {
			return ls[i].priority > ls[j].priority
		}
		return ls[i].seq < ls[j].seq
	})
	b.listeners[eventType] = ls
}

// Off removes every listener registered for eventType under pluginID.
// Returns the number of listeners removed.
func (b *Bus) Off(eventType EventType, pluginID string) int {
	ls, ok := b.listeners[eventType]
	if !ok {
		return 0
	}

	kept := ls[:0:0]
	removed := 0
	for _, l := range ls {
		if l.pluginID == pluginID {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		delete(b.listeners, eventType)
	} else {
		b.listeners[eventType] = kept
	}
	return removed
}

// RemovePlugin removes every listener registered under pluginID, across all
// event types. Returns the number of listeners removed.
func (b *Bus) RemovePlugin(pluginID string) int {
	removed := 0
	for eventType := range b.listeners {
		removed += b.Off(eventType, pluginID)
	}
	return removed
}

// Emit dispatches payload to eventType's listeners in priority order. While
// a batch is open (see BeginBatch), the emit is queued instead and replayed
// in insertion order when the outermost EndBatch runs.
func (b *Bus) Emit(eventType EventType, payload any) {
	if b.batchDepth > 0 {
		b.queue = append(b.queue, queuedEmit{eventType: eventType, payload: payload})
		return
	}
	b.dispatch(eventType, payload)
}

func (b *Bus) dispatch(eventType EventType, payload any) {
	ls := b.listeners[eventType]
	if len(ls) == 0 {
		return
	}

	// Snapshot so handlers that register/unregister during dispatch don't
	// perturb this emission's listener set.
	snapshot := make([]*listener, len(ls))
	copy(snapshot, ls)

	var onceFired []*listener
	for _, l := range snapshot {
		if l.removed {
			continue
		}
		err := b.invoke(l, payload)
		if err != nil {
			b.onError(eventType, l.pluginID, err)
		}
		if l.once {
			l.removed = true
			onceFired = append(onceFired, l)
		}
	}

	if len(onceFired) > 0 {
		b.pruneRemoved(eventType)
	}
}

func (b *Bus) invoke(l *listener, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Recovered: r}
		}
	}()
	return l.handler(payload)
}

func (b *Bus) pruneRemoved(eventType EventType) {
	ls := b.listeners[eventType]
	kept := ls[:0:0]
	for _, l := range ls {
		if !l.removed {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(b.listeners, eventType)
	} else {
		b.listeners[eventType] = kept
	}
}

// BeginBatch opens (or nests into) a batch scope. Emits issued while any
// batch scope is open are queued rather than dispatched immediately.
func (b *Bus) BeginBatch() {
	b.batchDepth++
}

// EndBatch closes one level of batch nesting. Only the outermost EndBatch
// flushes the queue, replaying queued emits in the order they were issued.
func (b *Bus) EndBatch() {
	if b.batchDepth == 0 {
		return
	}
	b.batchDepth--
	if b.batchDepth > 0 {
		return
	}

	pending := b.queue
	b.queue = nil
	for _, qe := range pending {
		b.dispatch(qe.eventType, qe.payload)
	}
}

// InBatch reports whether a batch scope is currently open.
func (b *Bus) InBatch() bool {
	return b.batchDepth > 0
}

// ListenerCount returns the number of listeners registered for eventType.
func (b *Bus) ListenerCount(eventType EventType) int {
	return len(b.listeners[eventType])
}

// PanicError wraps a recovered handler panic so it can be reported through
// the normal error-hook path instead of crashing the editor.
type PanicError struct {
	Recovered any
}

func (e *PanicError) Error() string {
	return "bufferbus: handler panicked"
}
