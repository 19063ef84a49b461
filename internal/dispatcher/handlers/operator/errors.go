package operator

import "errors"

var (
	// ErrMissingMotion is returned when an operator has no visual
	// selection, motion, or text object to resolve a range from.
	ErrMissingMotion = errors.New("operator: missing motion, text object, or selection")
	// ErrUnknownMotion is returned for a motion name the resolver does
	// not recognize.
	ErrUnknownMotion = errors.New("operator: unknown motion")
	// ErrUnknownTextObject is returned for a text object name the
	// resolver does not recognize.
	ErrUnknownTextObject = errors.New("operator: unknown text object")
	// ErrUnknownOperator is returned by NormalMode when a completed
	// command's operator has no registered Executor.
	ErrUnknownOperator = errors.New("operator: unknown or unhandled operator")
)
