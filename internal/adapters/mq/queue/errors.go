package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrClosed = errors.New("refresh queue closed")
	ErrFull   = errors.New("refresh queue full")
)
