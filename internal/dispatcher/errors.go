package dispatcher

import "errors"

var (
	// ErrOperatorPending is returned by StartOperator when one is already
	// in progress.
	ErrOperatorPending = errors.New("dispatcher: operator already pending")

	// ErrNoOperatorPending is returned by CompleteOperator/CancelOperator
	// when the engine is idle.
	ErrNoOperatorPending = errors.New("dispatcher: no operator pending")

	// ErrNoOperationToRepeat is returned by RepeatLast/RepeatLastN when no
	// operation has ever completed.
	ErrNoOperationToRepeat = errors.New("dispatcher: no operation to repeat")
)
