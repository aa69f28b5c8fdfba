// Package cache implements the cache reader: it owns the latest snapshot,
// lazily refreshes it, and answers indexed lookups and fuzzy finders,
// using Go's atomic-pointer-swap idiom for the snapshot install ("swap is a single
// pointer/reference assignment guarded by the reload mutex") and to
// golang.org/x/sync/singleflight for the reload mutex's single-flight
// semantics.
package cache

import (
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL                  = 300 * time.Second
	DefaultIdleRefreshThreshold = 60 * time.Second
)

// Config configures a Reader. StoreRoot is the directory embeddeddb
// discovers Linear-owned database files under.
type Config struct {
	StoreRoot            string
	TTL                  time.Duration
	IdleRefreshThreshold time.Duration
	LoadDocumentContent  bool
	Scope                ScopeConfig
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.IdleRefreshThreshold <= 0 {
		c.IdleRefreshThreshold = DefaultIdleRefreshThreshold
	}
	return c
}

type Reader struct {
	cfg Config

	mu       sync.RWMutex
	snapshot *Snapshot
	group    singleflight.Group

	hasLastToolCall bool
	lastToolCallAt  time.Time
	forceStale      bool

	// Health tracking beyond the snapshot's own degraded fields: reload
	// failure history (failure count, last error, last-error time,
	// last-success time).
	failureCount  int
	lastError     string
	lastErrorAt   time.Time
	lastSuccessAt time.Time
}

func New(cfg Config) *Reader {
	return &Reader{cfg: cfg.withDefaults()}
}

// EnsureFresh implements the idle-gap staleness heuristic: if the gap
// since the last tool call is at least IdleRefreshThreshold, the
// cache is marked stale so the next access reloads. The very first call
// never forces a reload.
func (r *Reader) EnsureFresh() {
	now := time.Now()

	r.mu.Lock()
	if r.hasLastToolCall && now.Sub(r.lastToolCallAt) >= r.cfg.IdleRefreshThreshold {
		r.forceStale = true
	}
	r.hasLastToolCall = true
	r.lastToolCallAt = now
	r.mu.Unlock()
}

// MarkStale forces the next ensureCache to reload regardless of TTL.
func (r *Reader) MarkStale() {
	r.mu.Lock()
	r.forceStale = true
	r.mu.Unlock()
}

func (r *Reader) currentSnapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *Reader) needsReload() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return true
	}
	if r.forceStale {
		return true
	}
	return r.snapshot.IsExpired(r.cfg.TTL, time.Now())
}

// ensureCache reloads the snapshot if it is missing, expired, or marked
// stale, then returns the current (possibly just-installed) snapshot.
func (r *Reader) ensureCache() (*Snapshot, error) {
	if !r.needsReload() {
		return r.currentSnapshot(), nil
	}
	return r.reload()
}

// reload is single-flight: concurrent callers share one in-flight load.
func (r *Reader) reload() (*Snapshot, error) {
	v, err, _ := r.group.Do("reload", func() (any, error) {
		snap, err := load(r.cfg.StoreRoot, r.cfg.LoadDocumentContent, r.cfg.Scope)
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.failureCount++
			r.lastError = err.Error()
			r.lastErrorAt = time.Now()
			log.Printf("[reader] reload failed: %v", err)
			return nil, err
		}
		r.snapshot = snap
		r.forceStale = false
		r.lastSuccessAt = time.Now()
		if snap.Degraded {
			log.Printf("[reader] reload installed degraded snapshot: %s", snap.DegradedReason)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// RefreshCache forces a reload when force is true; otherwise it behaves
// like any other access (reload only if expired/stale). It returns the
// resulting health.
func (r *Reader) RefreshCache(force bool) (Health, error) {
	if force {
		r.MarkStale()
	}
	_, err := r.ensureCache()
	if err != nil {
		return r.GetHealth(), err
	}
	return r.GetHealth(), nil
}

// IsDegraded reports whether the current (freshly-ensured) snapshot is
// degraded. A reload error also counts as degraded.
func (r *Reader) IsDegraded() bool {
	snap, err := r.ensureCache()
	if err != nil {
		return true
	}
	return snap.Degraded
}
