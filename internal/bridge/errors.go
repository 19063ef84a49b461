package bridge

import "errors"

var (
	// ErrInvalidBuffer is returned when a BufferID does not name a live buffer.
	ErrInvalidBuffer = errors.New("bridge: invalid buffer id")

	// ErrOutOfRange is returned when a range's end exceeds the buffer length.
	ErrOutOfRange = errors.New("bridge: range out of buffer bounds")

	// ErrNoCurrentBuffer is returned when a current-buffer operation is
	// invoked before any buffer has been opened.
	ErrNoCurrentBuffer = errors.New("bridge: no current buffer")
)
