// Package repository persists guests, events and cached importance scores.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/metrics"
)

// MetadataStore reads and upserts cached importance scores.
type MetadataStore interface {
	// GetMetadata returns the record for guestID. found is false when no
	// record exists; that is not an error.
	GetMetadata(ctx context.Context, guestID string) (meta model.ScoreMetadata, found bool, err error)
	// PutMetadata replaces score, hash, calculatedAt and breakdown in one write.
	PutMetadata(ctx context.Context, meta model.ScoreMetadata) error
}

// GuestStore is the guest directory.
type GuestStore interface {
	// GetGuest returns ErrNotFound for unknown guests.
	GetGuest(ctx context.Context, guestID string) (model.Guest, error)
	// GetEvent returns ErrNotFound for unknown events.
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	// ListGuests returns an organization's guests ordered by id.
	ListGuests(ctx context.Context, organizationID string) ([]model.Guest, error)
	UpsertGuest(ctx context.Context, guest model.Guest) error
	UpsertEvent(ctx context.Context, event model.Event) error
}

// Stats summarizes store contents.
type Stats struct {
	Guests int `json:"guests"`
	Events int `json:"events"`
	Scored int `json:"scored"`
}

// Store is the full persistence surface used by the service.
type Store interface {
	MetadataStore
	GuestStore
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// observe records latency for op and counts failures other than ErrNotFound.
func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && *err != nil && !errors.Is(*err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}
