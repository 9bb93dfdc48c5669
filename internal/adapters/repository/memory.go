package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
)

// MemoryStore keeps everything in process memory. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	guests   map[string]model.Guest
	events   map[string]model.Event
	metadata map[string]model.ScoreMetadata
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guests:   make(map[string]model.Guest),
		events:   make(map[string]model.Event),
		metadata: make(map[string]model.ScoreMetadata),
	}
}

// GetMetadata implements MetadataStore.
func (s *MemoryStore) GetMetadata(_ context.Context, guestID string) (model.ScoreMetadata, bool, error) {
	defer observe("get_metadata", time.Now(), nil)
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[guestID]
	if !ok {
		return model.ScoreMetadata{}, false, nil
	}
	return m.Clone(), true, nil
}

// PutMetadata implements MetadataStore.
func (s *MemoryStore) PutMetadata(_ context.Context, meta model.ScoreMetadata) (err error) {
	defer observe("put_metadata", time.Now(), &err)
	if strings.TrimSpace(meta.GuestID) == "" {
		return fmt.Errorf("%w: metadata without guest id", ErrInvalidRecord)
	}
	s.mu.Lock()
	s.metadata[meta.GuestID] = meta.Clone()
	s.mu.Unlock()
	return nil
}

// GetGuest implements GuestStore.
func (s *MemoryStore) GetGuest(_ context.Context, guestID string) (model.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[guestID]
	if !ok {
		return model.Guest{}, ErrNotFound
	}
	return g, nil
}

// GetEvent implements GuestStore.
func (s *MemoryStore) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return e, nil
}

// ListGuests implements GuestStore.
func (s *MemoryStore) ListGuests(_ context.Context, organizationID string) ([]model.Guest, error) {
	defer observe("list_guests", time.Now(), nil)
	s.mu.RLock()
	out := make([]model.Guest, 0)
	for _, g := range s.guests {
		if g.OrganizationID == organizationID {
			out = append(out, g)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertGuest implements GuestStore.
func (s *MemoryStore) UpsertGuest(_ context.Context, guest model.Guest) error {
	if strings.TrimSpace(guest.ID) == "" {
		return fmt.Errorf("%w: guest without id", ErrInvalidRecord)
	}
	s.mu.Lock()
	s.guests[guest.ID] = guest
	s.mu.Unlock()
	return nil
}

// UpsertEvent implements GuestStore.
func (s *MemoryStore) UpsertEvent(_ context.Context, event model.Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("%w: event without id", ErrInvalidRecord)
	}
	s.mu.Lock()
	s.events[event.ID] = event
	s.mu.Unlock()
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Guests: len(s.guests), Events: len(s.events), Scored: len(s.metadata)}, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
