// Package router implements the router component: it holds the write/read
// coherence deadline, picks local vs. upstream per call, decorates degraded
// responses as stale, and aggregates health and re-auth across the cache
// reader and the upstream session manager. Every dependency lives on an
// explicit Router value rather than a process-global singleton.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oh-my-linear/gateway/internal/apperr"
	"github.com/oh-my-linear/gateway/internal/cache"
	"github.com/oh-my-linear/gateway/internal/dispatch"
	"github.com/oh-my-linear/gateway/internal/upstream"
)

const DefaultCoherenceWindow = 30 * time.Second

// writePrefixes is the fixed set of tool-name prefixes that mark a write.
var writePrefixes = []string{
	"create_", "update_", "delete_", "archive_", "unarchive_",
	"set_", "add_", "remove_", "move_",
}

// Router is the load-bearing but thin component sitting between the tool
// dispatcher and the cache reader / upstream session manager.
type Router struct {
	reader   *cache.Reader
	official *upstream.SessionManager
	handlers dispatch.Table

	mu                sync.Mutex
	coherenceDeadline time.Time
	coherenceWindow   time.Duration
}

func New(reader *cache.Reader, official *upstream.SessionManager, handlers dispatch.Table, coherenceWindow time.Duration) *Router {
	if coherenceWindow <= 0 {
		coherenceWindow = DefaultCoherenceWindow
	}
	return &Router{
		reader:          reader,
		official:        official,
		handlers:        handlers,
		coherenceWindow: coherenceWindow,
	}
}

// IsWriteTool reports whether name is treated as a write: it begins with
// one of the fixed prefixes and is not itself a registered local read
// handler.
func (rt *Router) IsWriteTool(name string) bool {
	if _, ok := rt.handlers[name]; ok {
		return false
	}
	for _, p := range writePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func (rt *Router) remoteFirst() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return time.Now().Before(rt.coherenceDeadline)
}

func (rt *Router) markWrite() {
	rt.mu.Lock()
	rt.coherenceDeadline = time.Now().Add(rt.coherenceWindow)
	rt.mu.Unlock()
}

// CallOfficial calls name unconditionally against the upstream session,
// arming the coherence deadline first if name is a write tool.
func (rt *Router) CallOfficial(ctx context.Context, name string, args map[string]any) (any, error) {
	if rt.IsWriteTool(name) {
		rt.markWrite()
	}
	return rt.official.CallTool(ctx, name, args)
}

// CallRead implements the read-path decision tree.
func (rt *Router) CallRead(ctx context.Context, name string, args map[string]any) (any, error) {
	rt.reader.EnsureFresh()

	if rt.remoteFirst() {
		value, err := rt.official.CallTool(ctx, name, args)
		if err == nil {
			return value, nil
		}
		if apperr.IsSemantic(err) {
			return nil, err
		}

		// Remote attempt failed with a non-semantic (transport) error; fall
		// through to local.
		localValue, fallback, localErr := rt.localAttempt(ctx, name, args, false)
		if localErr != nil {
			// Unexpected local exception falls back to upstream unconditionally,
			// same as the pure-local path below.
			return rt.official.CallTool(ctx, name, args)
		}
		if fallback == nil {
			return localValue, nil
		}
		if fallback.Cause == apperr.CauseDegradedLocal {
			degradedValue, retryFallback, retryErr := rt.localAttempt(ctx, name, args, true)
			if retryErr != nil {
				// An unexpected exception on the degraded retry also falls
				// back to upstream.
				return rt.official.CallTool(ctx, name, args)
			}
			if retryFallback != nil {
				return nil, err
			}
			return markStale(degradedValue), nil
		}
		return nil, err
	}

	// Pure-local path.
	localValue, fallback, localErr := rt.localAttempt(ctx, name, args, false)
	if localErr != nil {
		// Unexpected local exception falls back to upstream unconditionally.
		return rt.official.CallTool(ctx, name, args)
	}
	if fallback == nil {
		return localValue, nil
	}

	upstreamValue, upstreamErr := rt.official.CallTool(ctx, name, args)
	if upstreamErr == nil {
		return upstreamValue, nil
	}
	if apperr.IsSemantic(upstreamErr) {
		return nil, upstreamErr
	}
	if fallback.Cause == apperr.CauseDegradedLocal {
		degradedValue, retryFallback, retryErr := rt.localAttempt(ctx, name, args, true)
		if retryErr != nil || retryFallback != nil {
			return nil, upstreamErr
		}
		return markStale(degradedValue), nil
	}
	return nil, upstreamErr
}

// localAttempt resolves the dispatch-table branch of the decision tree: a
// nil fallback with a nil error means the handler ran and returned value;
// a non-nil fallback means the router should apply the fallback rules; a
// non-nil err (never a *LocalFallbackRequested) is an unexpected exception.
func (rt *Router) localAttempt(ctx context.Context, name string, args map[string]any, allowDegraded bool) (any, *apperr.LocalFallbackRequested, error) {
	handler, ok := rt.handlers[name]
	if !ok {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedTool), nil
	}
	if !allowDegraded && rt.reader.IsDegraded() {
		return nil, apperr.NewFallback(apperr.CauseDegradedLocal), nil
	}

	value, err := handler(rt.reader, args)
	if err == nil {
		return value, nil, nil
	}
	if fb, ok := apperr.AsFallback(err); ok {
		return nil, fb, nil
	}
	return nil, nil, err
}

// markStale decorates a degraded-fallback response with a staleness marker
// without mutating the original value.
func markStale(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v)+1)
		for k, val := range v {
			out[k] = val
		}
		out["_metadata"] = map[string]any{"stale": true}
		return out
	default:
		return map[string]any{
			"results":   value,
			"_metadata": map[string]any{"stale": true},
		}
	}
}

// RefreshLocalCache forces a local reload and returns the resulting health.
func (rt *Router) RefreshLocalCache() (cache.Health, error) {
	return rt.reader.RefreshCache(true)
}

// Health merges local cache health, upstream session health, and router
// coherence state.
type Health struct {
	Local             cache.Health
	Upstream          upstream.Health
	RemoteFirst       bool
	CoherenceDeadline time.Time
	CoherenceWindow   time.Duration
}

func (rt *Router) GetHealth() Health {
	rt.mu.Lock()
	deadline := rt.coherenceDeadline
	window := rt.coherenceWindow
	rt.mu.Unlock()

	return Health{
		Local:             rt.reader.GetHealth(),
		Upstream:          rt.official.GetHealth(),
		RemoteFirst:       rt.remoteFirst(),
		CoherenceDeadline: deadline,
		CoherenceWindow:   window,
	}
}

// ReauthResult is the combined reauth_all() payload.
type ReauthResult struct {
	Linear upstream.ReauthResult
	Notion *upstream.ReauthResult
}

func (rt *Router) ReauthOfficial() (upstream.ReauthResult, error) {
	return rt.official.Reauth()
}

func (rt *Router) ReauthNotion(notionURL string) (upstream.ReauthResult, error) {
	if notionURL == "" {
		return upstream.ReauthResult{}, fmt.Errorf("reauth notion: no NOTION_OFFICIAL_MCP_URL configured")
	}
	return upstream.ClearTokenCacheForURL(notionURL)
}

func (rt *Router) ReauthAll(notionURL string) (ReauthResult, error) {
	linearResult, err := rt.ReauthOfficial()
	if err != nil {
		return ReauthResult{}, err
	}
	result := ReauthResult{Linear: linearResult}
	if notionURL == "" {
		return result, nil
	}
	notionResult, err := upstream.ClearTokenCacheForURL(notionURL)
	if err != nil {
		return result, err
	}
	result.Notion = &notionResult
	return result, nil
}
