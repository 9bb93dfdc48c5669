package cache

import "errors"

// ErrLookup wraps metadata store failures seen during a cache check.
var ErrLookup = errors.New("cache lookup failed")
