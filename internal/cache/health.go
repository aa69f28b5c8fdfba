package cache

import "time"

// Health is the cache reader's get_health() payload.
type Health struct {
	Degraded             bool
	DegradedReason       string
	FailureCount         int
	LastError            string
	LastErrorAt          time.Time
	LastSuccessAt        time.Time
	LoadedAt             time.Time
	TTL                  time.Duration
	LastToolCallAt       time.Time
	IdleRefreshThreshold time.Duration
	ScopeActive          bool
	Summary              Summary
}

func (r *Reader) GetHealth() Health {
	snap, err := r.ensureCache()

	r.mu.RLock()
	h := Health{
		FailureCount:         r.failureCount,
		LastError:            r.lastError,
		LastErrorAt:          r.lastErrorAt,
		LastSuccessAt:        r.lastSuccessAt,
		TTL:                  r.cfg.TTL,
		LastToolCallAt:       r.lastToolCallAt,
		IdleRefreshThreshold: r.cfg.IdleRefreshThreshold,
		ScopeActive:          r.cfg.Scope.active(),
	}
	r.mu.RUnlock()

	if err != nil || snap == nil {
		h.Degraded = true
		if err != nil {
			h.DegradedReason = err.Error()
		}
		return h
	}

	h.Degraded = snap.Degraded
	h.DegradedReason = snap.DegradedReason
	h.LoadedAt = snap.LoadedAt
	summary, _ := r.GetSummary()
	h.Summary = summary
	return h
}
