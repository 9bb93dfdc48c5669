package scoring

import "errors"

// Sentinel kinds for scorer failures.
var (
	// ErrUnavailable covers timeouts, quota and transport failures.
	ErrUnavailable = errors.New("scorer unavailable")
	// ErrInvalidInput means the guest cannot be scored as given.
	ErrInvalidInput = errors.New("scorer invalid input")
)
