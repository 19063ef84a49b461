// Package dispatcher implements the operator-pending state machine that sits
// above keystroke parsing: it tracks an operator waiting for a motion or
// text object, records completed operations for dot-repeat, and replays the
// last recorded operation through a caller-supplied executor.
//
// The engine does not know how to mutate a buffer itself — callers in
// internal/dispatcher/handlers/operator supply the Executor closures that
// apply a RecordedOperation's range through internal/engine/buffer.
package dispatcher
