package bufferbus

import "errors"

var (
	// ErrNilHandler is returned when On/Once is called with a nil handler.
	ErrNilHandler = errors.New("bufferbus: handler is nil")

	// ErrEmptyPluginID is returned when a registration omits a plugin id.
	ErrEmptyPluginID = errors.New("bufferbus: plugin id is empty")
)
