// Package model contains domain models passed between layers.
package model

import "time"

// Guest is an attendee record owned by the guest directory.
// Only FirstName, LastName, Email, Company, JobTitle and Notes influence importance.
type Guest struct {
	ID             string `json:"id" validate:"required,max=128"`
	OrganizationID string `json:"organization_id,omitempty" validate:"max=128"`
	FirstName      string `json:"first_name" validate:"max=256"`
	LastName       string `json:"last_name" validate:"max=256"`
	Email          string `json:"email" validate:"omitempty,email"`
	Company        string `json:"company,omitempty"`
	JobTitle       string `json:"job_title,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
}

// Event supplies context to the scorer. It never influences cache validity.
type Event struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Industry       string `json:"industry,omitempty"`
}

// Breakdown is the scorer's explanatory payload. Opaque to the cache.
type Breakdown map[string]any

// ScoreMetadata is the cached importance score for one guest.
// Score and DataHash are always written together.
type ScoreMetadata struct {
	GuestID      string     `json:"guest_id"`
	Score        *float64   `json:"score"`
	DataHash     string     `json:"data_hash"`
	CalculatedAt *time.Time `json:"calculated_at"`
	Breakdown    Breakdown  `json:"breakdown,omitempty"`
}

// Clone returns a deep-enough copy so callers cannot mutate stored records.
func (m ScoreMetadata) Clone() ScoreMetadata {
	out := m
	if m.Score != nil {
		s := *m.Score
		out.Score = &s
	}
	if m.CalculatedAt != nil {
		t := *m.CalculatedAt
		out.CalculatedAt = &t
	}
	if m.Breakdown != nil {
		out.Breakdown = make(Breakdown, len(m.Breakdown))
		for k, v := range m.Breakdown {
			out.Breakdown[k] = v
		}
	}
	return out
}

// RefreshJob asks a background worker to re-analyse one guest.
type RefreshJob struct {
	ID           string
	GuestID      string
	EventID      string
	ForceRefresh bool
	RequestedAt  time.Time
}
