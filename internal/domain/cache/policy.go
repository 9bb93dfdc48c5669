package cache

import "time"

// DefaultTTLDays is the default maximum age of a cached score.
const DefaultTTLDays = 30

const day = 24 * time.Hour

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithTTLDays sets the TTL in days. Non-positive values are ignored.
func WithTTLDays(days int) PolicyOption {
	return func(p *Policy) {
		if days > 0 {
			p.ttl = time.Duration(days) * day
		}
	}
}

// WithTTL sets the TTL as a duration. Non-positive values are ignored.
func WithTTL(ttl time.Duration) PolicyOption {
	return func(p *Policy) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// Policy is the time-based staleness rule.
type Policy struct {
	ttl time.Duration
	now func() time.Time
}

// NewPolicy creates a Policy with a 30 day TTL unless overridden.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		ttl: DefaultTTLDays * day,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TTL returns the configured maximum age.
func (p *Policy) TTL() time.Duration { return p.ttl }

// IsStale reports whether a score calculated at calculatedAt must be recomputed.
func (p *Policy) IsStale(calculatedAt *time.Time) bool {
	return isStale(calculatedAt, p.ttl, p.now())
}

// IsStale is the pure form of the policy: true when calculatedAt is absent or
// more than ttlDays days before now.
func IsStale(calculatedAt *time.Time, ttlDays int, now time.Time) bool {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	return isStale(calculatedAt, time.Duration(ttlDays)*day, now)
}

func isStale(calculatedAt *time.Time, ttl time.Duration, now time.Time) bool {
	if calculatedAt == nil || calculatedAt.IsZero() {
		return true
	}
	return now.Sub(*calculatedAt) > ttl
}
