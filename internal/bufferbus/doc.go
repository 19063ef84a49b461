// Package bufferbus implements the typed, prioritized, batchable event bus
// that sits above buffer mutations and keystroke dispatch.
//
// Unlike the generic topic-pattern pub/sub in internal/event (aimed at
// integration-layer fan-out), this bus models the editor's fixed catalog of
// buffer/cursor/insert-mode lifecycle events, registers listeners per plugin
// id so a plugin's handlers can be torn down as a unit, and supports nested
// begin/end batching with deterministic, insertion-ordered flush.
//
// The bus is single-threaded by contract: emission must happen on the
// editor's main goroutine. Producers living on other goroutines (LSP reader
// threads, file watchers) must post into a queue consumed on that goroutine
// rather than calling Emit directly.
package bufferbus
