package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrQueueClosed  = errors.New("refresh queue closed")
	ErrUnknownStore = errors.New("unknown store backend")
)
