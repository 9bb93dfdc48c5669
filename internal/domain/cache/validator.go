// Package cache decides whether a stored importance score can be served.
//
// Two independent checks are composed by callers: the Validator compares the
// stored fingerprint with the current one, and the Policy applies the TTL.
package cache

import (
	"context"
	"fmt"

	"github.com/okian/guestrank/internal/domain/model"
)

// State tags the outcome of a cache check.
type State int

const (
	// Missing means no usable record: none stored, or score/hash absent.
	Missing State = iota
	// Stale means a record exists but was computed from different guest data.
	Stale
	// Fresh means the stored hash matches the current fingerprint.
	Fresh
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Lookup is the result of Validator.Check. Metadata is populated only when
// State is Fresh; a stale record is never exposed.
type Lookup struct {
	State    State
	Metadata model.ScoreMetadata
}

// Valid reports whether the stored fingerprint matched.
func (l Lookup) Valid() bool { return l.State == Fresh }

// MetadataReader loads cached metadata for a guest.
type MetadataReader interface {
	// GetMetadata returns found=false when no record exists.
	GetMetadata(ctx context.Context, guestID string) (model.ScoreMetadata, bool, error)
}

// Validator compares stored fingerprints with current ones.
type Validator struct {
	store MetadataReader
}

// NewValidator creates a Validator reading from store.
func NewValidator(store MetadataReader) *Validator {
	return &Validator{store: store}
}

// Check loads the metadata for guestID and compares its hash with digest.
// It performs no writes.
func (v *Validator) Check(ctx context.Context, guestID, digest string) (Lookup, error) {
	meta, found, err := v.store.GetMetadata(ctx, guestID)
	if err != nil {
		return Lookup{State: Missing}, fmt.Errorf("%w: %s: %w", ErrLookup, guestID, err)
	}
	if !found || meta.Score == nil || meta.DataHash == "" {
		return Lookup{State: Missing}, nil
	}
	if meta.DataHash != digest {
		return Lookup{State: Stale}, nil
	}
	return Lookup{State: Fresh, Metadata: meta}, nil
}
