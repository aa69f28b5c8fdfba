// Package health formats the router's merged health payload for humans
// (the health CLI command) and for machines (JSON, piped output). Kept
// separate from internal/router so the router itself stays free of
// presentation concerns.
package health

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/oh-my-linear/gateway/internal/router"
)

// JSON renders router.Health as indented JSON for non-terminal output
// (piped to another tool, or a script checking exit status).
func JSON(h router.Health) (string, error) {
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal health: %w", err)
	}
	return string(b), nil
}

// Human renders router.Health as a multi-line human-readable report, using
// go-humanize for relative timestamps; durations use time.Duration's String.
func Human(h router.Health) string {
	var b strings.Builder

	fmt.Fprintf(&b, "local cache:\n")
	if h.Local.Degraded {
		fmt.Fprintf(&b, "  status: degraded (%s)\n", h.Local.DegradedReason)
	} else {
		fmt.Fprintf(&b, "  status: healthy\n")
	}
	if !h.Local.LoadedAt.IsZero() {
		fmt.Fprintf(&b, "  loaded: %s\n", humanize.Time(h.Local.LoadedAt))
	}
	fmt.Fprintf(&b, "  ttl: %s\n", h.Local.TTL)
	fmt.Fprintf(&b, "  idle-refresh threshold: %s\n", h.Local.IdleRefreshThreshold)
	if h.Local.FailureCount > 0 {
		fmt.Fprintf(&b, "  reload failures: %d (last: %s, %s)\n", h.Local.FailureCount, h.Local.LastError, humanize.Time(h.Local.LastErrorAt))
	}
	fmt.Fprintf(&b, "  scope active: %v\n", h.Local.ScopeActive)
	fmt.Fprintf(&b, "  entities: teams=%d users=%d issues=%d projects=%d comments=%d\n",
		h.Local.Summary.Teams, h.Local.Summary.Users, h.Local.Summary.Issues, h.Local.Summary.Projects, h.Local.Summary.Comments)

	fmt.Fprintf(&b, "upstream session:\n")
	fmt.Fprintf(&b, "  transport: %s\n", h.Upstream.Transport)
	fmt.Fprintf(&b, "  connected: %v\n", h.Upstream.Connected)
	if h.Upstream.FailureCount > 0 {
		fmt.Fprintf(&b, "  failures: %d (last: %s)\n", h.Upstream.FailureCount, h.Upstream.LastError)
	}
	if !h.Upstream.LastConnectedAt.IsZero() {
		fmt.Fprintf(&b, "  last connected: %s\n", humanize.Time(h.Upstream.LastConnectedAt))
	}

	fmt.Fprintf(&b, "router:\n")
	fmt.Fprintf(&b, "  remote-first window active: %v\n", h.RemoteFirst)
	if h.RemoteFirst {
		fmt.Fprintf(&b, "  coherence deadline: %s\n", humanize.Time(h.CoherenceDeadline))
	}

	return b.String()
}
