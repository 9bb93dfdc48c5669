// Package batchcli drives the batch importance endpoint from the command line.
package batchcli

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrNoGuests    = errors.New("no guests to score")
	ErrGuestsFile  = errors.New("read guests file")
	ErrUnavailable = errors.New("service unavailable")
	ErrBatch       = errors.New("batch request failed")
)

// Config holds the run configuration.
type Config struct {
	BaseURL        string        // service base URL
	GuestsFile     string        // YAML or JSON file with a top-level "guests" list
	Generate       int           // synthetic guests to generate when no file is given
	OrganizationID string        // organization stamped on generated guests
	ChunkSize      int           // guests per batch request
	Workers        int           // concurrent batch requests
	Timeout        time.Duration // per-request timeout
	ForceRefresh   bool          // bypass the score cache
	Top            int           // highest scores to print
	Verbose        bool          // log every chunk
}

// Summary aggregates the outcome of every chunk.
type Summary struct {
	Requests  int
	Total     int
	Processed int
	Failed    int
	Cached    int
	Reasons   map[string]int
	Top       []Scored
	Errors    []string
	Duration  time.Duration
}

// Scored is one successfully scored guest.
type Scored struct {
	GuestID string  `json:"guest_id"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
	Cached  bool    `json:"cached"`
}
