package importance

import (
	"errors"
	"fmt"
)

// Sentinel kinds for importance analysis failures. Returned errors wrap one
// kind and the underlying cause, so errors.Is works on both.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrScorer     = errors.New("scorer failed")
	ErrStore      = errors.New("store failed")
	ErrCancelled  = errors.New("cancelled")
)

var kinds = []error{ErrNotFound, ErrValidation, ErrScorer, ErrStore, ErrCancelled}

// Kind returns the sentinel kind wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func wrap(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
