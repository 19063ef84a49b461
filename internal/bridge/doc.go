// Package bridge implements the editor-context bridge described in the
// runtime spec: a multi-buffer registry exposing rope-backed buffers,
// cursors, and selections to plugins, adjusting cursor/selection state on
// every edit and dispatching typed change events on a bufferbus.Bus.
//
// Each buffer owns an independent internal/engine.Engine (rope, cursor set,
// undo history, change tracking); the bridge adds buffer identity, path,
// filetype, modified/change-tick bookkeeping, and event emission on top.
package bridge
