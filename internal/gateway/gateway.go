// Package gateway wires the cache reader, upstream session manager, and
// router into one explicit App value and owns process lifecycle: startup
// eager-connect decision, SIGTERM re-auth prep, and the top-level dispatch
// entrypoint the command layer calls into. Every dependency is an explicit
// field on App rather than a process-global singleton.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/oh-my-linear/gateway/internal/cache"
	"github.com/oh-my-linear/gateway/internal/config"
	"github.com/oh-my-linear/gateway/internal/dispatch"
	"github.com/oh-my-linear/gateway/internal/router"
	"github.com/oh-my-linear/gateway/internal/upstream"
)

const reconnectSentinelName = "oh-my-linear-reconnect"

// App is the fully wired gateway: one cache reader, one upstream session,
// one router, built from a loaded Config.
type App struct {
	Config   *config.Config
	Reader   *cache.Reader
	Official *upstream.SessionManager
	Router   *router.Router
}

// New builds an App from cfg without performing any I/O beyond what the
// session manager's constructor does (which is none — connection is lazy).
func New(cfg *config.Config) (*App, error) {
	reader := cache.New(cache.Config{
		StoreRoot:           cfg.Cache.StorePath,
		TTL:                 cfg.Cache.TTL,
		IdleRefreshThreshold: cfg.Cache.IdleRefreshSeconds,
		LoadDocumentContent:  cfg.Cache.LoadDocumentContent,
		Scope: cache.ScopeConfig{
			AccountEmails:  cfg.Cache.AccountEmails,
			UserAccountIDs: cfg.Cache.UserAccountIDs,
		},
	})

	official, err := upstream.New(upstream.Config{
		Transport: cfg.Upstream.Transport,
		URL:       cfg.Upstream.URL,
		Headers:   cfg.Upstream.Headers,
		Command:   cfg.Upstream.Command,
		Args:      cfg.Upstream.Args,
		Env:       cfg.Upstream.Env,
		Cwd:       cfg.Upstream.Cwd,
	})
	if err != nil {
		return nil, fmt.Errorf("construct upstream session: %w", err)
	}

	handlers := dispatch.Default()
	rt := router.New(reader, official, handlers, cfg.Router.CoherenceWindowSeconds)

	return &App{Config: cfg, Reader: reader, Official: official, Router: rt}, nil
}

// reconnectSentinelPath is the zero-byte marker written on SIGTERM and
// consumed at the next startup to force an eager reconnect.
func reconnectSentinelPath() string {
	dir := os.Getenv("TMPDIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, reconnectSentinelName)
}

// Start runs the startup sequence: force a local cache load (logging, not
// failing, on error — the gateway should still serve degraded), decide
// whether to eagerly connect upstream, and install the SIGTERM handler.
// It returns a stop function the caller should defer.
func (a *App) Start(ctx context.Context) (stop func(), err error) {
	if _, refreshErr := a.Reader.RefreshCache(true); refreshErr != nil {
		log.Printf("[gateway] startup cache load failed, continuing degraded: %v", refreshErr)
	}

	if a.shouldEagerConnect() {
		go a.eagerConnect(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	done := make(chan struct{})
	go a.handleSignals(sigCh, done)

	return func() {
		signal.Stop(sigCh)
		close(done)
	}, nil
}

// shouldEagerConnect implements server.py's `_lifespan` startup check: a
// reconnect sentinel from a prior SIGTERM (removed here) forces a connect
// before the first real call so the OAuth flow happens up front; otherwise a
// cached token for the upstream URL also triggers an eager connect, and
// without one the session connects lazily on the first call.
func (a *App) shouldEagerConnect() bool {
	sentinel := reconnectSentinelPath()
	if _, err := os.Stat(sentinel); err == nil {
		_ = os.Remove(sentinel)
		return true
	}
	return upstream.HasCachedTokens(a.Config.Upstream.URL)
}

func (a *App) eagerConnect(ctx context.Context) {
	if _, err := a.Official.ListTools(ctx); err != nil {
		log.Printf("[gateway] eager upstream connect failed, will retry lazily: %v", err)
	}
}

func (a *App) handleSignals(sigCh chan os.Signal, done chan struct{}) {
	select {
	case <-sigCh:
		log.Printf("[gateway] SIGTERM received, clearing token cache and writing reconnect sentinel")
		if _, err := upstream.ClearTokenCacheForURL(a.Config.Upstream.URL); err != nil {
			log.Printf("[gateway] SIGTERM token cache clear failed: %v", err)
		}
		if f, err := os.Create(reconnectSentinelPath()); err != nil {
			log.Printf("[gateway] SIGTERM sentinel write failed: %v", err)
		} else {
			f.Close()
		}
		_ = a.Official.Close()
	case <-done:
	}
}

// Dispatch is the top-level entrypoint the command/tool layer calls:
// writes go unconditionally upstream, everything else goes through the
// router's read-path decision tree.
func (a *App) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	if a.Router.IsWriteTool(name) {
		return a.Router.CallOfficial(ctx, name, args)
	}
	return a.Router.CallRead(ctx, name, args)
}

// Close tears down the upstream session.
func (a *App) Close() error {
	return a.Official.Close()
}
