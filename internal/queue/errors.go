package queue

import "errors"

// ErrNotInitialized is returned by mutating operations invoked before
// Initialize has loaded the persisted queue state.
var ErrNotInitialized = errors.New("queue not initialized: call Initialize first")

// ErrNilHandler is returned by ProcessAll when no handler was supplied.
var ErrNilHandler = errors.New("process handler is nil")

// ErrEmptyActionType is returned by Add for actions without a type tag.
var ErrEmptyActionType = errors.New("action type is empty")
