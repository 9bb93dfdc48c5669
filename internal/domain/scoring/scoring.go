// Package scoring defines the contract of the external importance scorer and
// a heuristic in-memory implementation of it.
package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 60 * time.Millisecond
	defaultRandomSeed = 42

	baseScore       = 10.0
	companyBonus    = 10.0
	workEmailBonus  = 5.0
	industryBonus   = 10.0
	minScoreValue   = 0.0
	maxScoreValue   = 100.0
	breakdownPrefix = "signal."
)

var freeMailDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"icloud.com":  {},
	"proton.me":   {},
}

var noteKeywords = map[string]float64{
	"vip":      15,
	"speaker":  10,
	"sponsor":  10,
	"investor": 10,
	"press":    5,
}

// Input is what the scorer needs to evaluate a guest.
type Input struct {
	Guest model.Guest
	Event *model.Event
}

// Result is a score in [0,100] plus an explanation.
type Result struct {
	Value     float64
	Breakdown model.Breakdown
}

// Scorer computes importance scores. Implementations may call remote services
// and must honor ctx for cancellation.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// Func adapts a function to Scorer.
type Func func(ctx context.Context, in Input) (Result, error)

// Score calls f.
func (f Func) Score(ctx context.Context, in Input) (Result, error) { return f(ctx, in) }

// Option applies a configuration option to the InMemoryScorer.
type Option func(*InMemoryScorer)

// WithLatencyRange sets the simulated latency range. A zero range disables latency.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *InMemoryScorer) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithTitleWeights sets job-title keyword weights. Non-positive weights are dropped.
func WithTitleWeights(weights map[string]float64) Option {
	return func(s *InMemoryScorer) {
		s.titleWeights = make(map[string]float64, len(weights))
		for kw, w := range weights {
			if w > 0 {
				s.titleWeights[fold(strings.TrimSpace(kw))] = w
			}
		}
	}
}

// InMemoryScorer is a deterministic heuristic scorer that simulates the
// latency of a remote model.
type InMemoryScorer struct {
	titleWeights map[string]float64
	minLatency   time.Duration
	maxLatency   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInMemoryScorer creates a new in-memory scorer.
func NewInMemoryScorer(opts ...Option) *InMemoryScorer {
	s := &InMemoryScorer{
		titleWeights: map[string]float64{"ceo": 40, "founder": 35, "director": 20, "manager": 10},
		minLatency:   defaultMinLatency,
		maxLatency:   defaultMaxLatency,
		rng:          rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // latency jitter only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates the guest and optional event.
func (s *InMemoryScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := validate(in.Guest); err != nil {
		return Result{}, err
	}

	if latency := s.latency(); latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	breakdown := model.Breakdown{}
	score := baseScore
	breakdown[breakdownPrefix+"base"] = baseScore

	if w, kw := s.titleWeight(in.Guest.JobTitle); w > 0 {
		score += w
		breakdown[breakdownPrefix+"title"] = w
		breakdown["matched_title_keyword"] = kw
	}
	if strings.TrimSpace(in.Guest.Company) != "" {
		score += companyBonus
		breakdown[breakdownPrefix+"company"] = companyBonus
	}
	if isWorkEmail(in.Guest.Email) {
		score += workEmailBonus
		breakdown[breakdownPrefix+"work_email"] = workEmailBonus
	}
	if w := notesWeight(in.Guest.Notes); w > 0 {
		score += w
		breakdown[breakdownPrefix+"notes"] = w
	}
	if in.Event != nil && matchesIndustry(in.Guest, in.Event.Industry) {
		score += industryBonus
		breakdown[breakdownPrefix+"event_industry"] = industryBonus
		breakdown["event_id"] = in.Event.ID
	}

	score = math.Max(minScoreValue, math.Min(maxScoreValue, score))
	return Result{Value: score, Breakdown: breakdown}, nil
}

func (s *InMemoryScorer) latency() time.Duration {
	if s.maxLatency <= 0 {
		return 0
	}
	span := int64(s.maxLatency - s.minLatency)
	if span <= 0 {
		return s.minLatency
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minLatency + time.Duration(s.rng.Int63n(span))
}

// titleWeight returns the largest weight whose keyword appears as a word in
// title, preferring the alphabetically first keyword on ties.
func (s *InMemoryScorer) titleWeight(title string) (float64, string) {
	titleWords := words(title)
	present := make(map[string]struct{}, len(titleWords))
	for _, w := range titleWords {
		present[w] = struct{}{}
	}

	keywords := make([]string, 0, len(s.titleWeights))
	for kw := range s.titleWeights {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	best, bestKW := 0.0, ""
	for _, kw := range keywords {
		if _, ok := present[kw]; ok && s.titleWeights[kw] > best {
			best, bestKW = s.titleWeights[kw], kw
		}
	}
	return best, bestKW
}

func validate(g model.Guest) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: guest id is empty", ErrInvalidInput)
	}
	if strings.TrimSpace(g.FirstName+g.LastName+g.Email) == "" {
		return fmt.Errorf("%w: guest %s has no name or email", ErrInvalidInput, g.ID)
	}
	return nil
}

func isWorkEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return false
	}
	_, free := freeMailDomains[strings.ToLower(email[at+1:])]
	return !free
}

func notesWeight(notes string) float64 {
	lower := fold(notes)
	total := 0.0
	for kw, w := range noteKeywords {
		if strings.Contains(lower, kw) {
			total += w
		}
	}
	return total
}

func matchesIndustry(g model.Guest, industry string) bool {
	industry = fold(strings.TrimSpace(industry))
	if industry == "" {
		return false
	}
	haystack := fold(g.Company + " " + g.JobTitle + " " + g.Notes)
	return strings.Contains(haystack, industry)
}
