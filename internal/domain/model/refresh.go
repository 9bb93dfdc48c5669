package model

// RefreshReceipt reports which refresh requests were queued.
type RefreshReceipt struct {
	Accepted []RefreshAccepted `json:"accepted"`
	Rejected []RefreshRejected `json:"rejected"`
}

// RefreshAccepted is a queued refresh job.
type RefreshAccepted struct {
	JobID   string `json:"job_id"`
	GuestID string `json:"guest_id"`
}

// RefreshRejected is a refresh request that could not be queued.
type RefreshRejected struct {
	GuestID string `json:"guest_id"`
	Reason  string `json:"reason"`
}

// ServiceStats is a point-in-time view of service state.
type ServiceStats struct {
	Started        bool    `json:"started"`
	Store          string  `json:"store"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Guests         int     `json:"guests"`
	Events         int     `json:"events"`
	Scored         int     `json:"scored"`
	QueueLength    int     `json:"queue_length"`
	QueueCapacity  int     `json:"queue_capacity"`
	Workers        int     `json:"workers"`
	JobsProcessed  int64   `json:"jobs_processed"`
	JobsFailed     int64   `json:"jobs_failed"`
	CacheTTLDays   int     `json:"cache_ttl_days"`
	InflightDedupe bool    `json:"inflight_dedupe"`
}
