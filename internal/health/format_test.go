package health

import (
	"strings"
	"testing"
	"time"

	"github.com/oh-my-linear/gateway/internal/cache"
	"github.com/oh-my-linear/gateway/internal/router"
	"github.com/oh-my-linear/gateway/internal/upstream"
)

func sampleHealth() router.Health {
	return router.Health{
		Local: cache.Health{
			Degraded: false,
			LoadedAt: time.Now().Add(-5 * time.Minute),
			TTL:      300 * time.Second,
			Summary:  cache.Summary{Teams: 2, Users: 5, Issues: 40, Projects: 3, Comments: 12},
		},
		Upstream: upstream.Health{
			Transport: "http",
			Connected: true,
		},
		RemoteFirst: false,
	}
}

func TestHumanReportsDegradedStatus(t *testing.T) {
	t.Parallel()
	h := sampleHealth()
	h.Local.Degraded = true
	h.Local.DegradedReason = "required entities are missing"

	out := Human(h)
	if !strings.Contains(out, "degraded (required entities are missing)") {
		t.Errorf("Human() = %q, want degraded reason reported", out)
	}
}

func TestHumanReportsHealthyAndEntityCounts(t *testing.T) {
	t.Parallel()
	out := Human(sampleHealth())

	if !strings.Contains(out, "status: healthy") {
		t.Errorf("Human() = %q, want healthy status", out)
	}
	if !strings.Contains(out, "issues=40") {
		t.Errorf("Human() = %q, want issue count", out)
	}
	if !strings.Contains(out, "transport: http") {
		t.Errorf("Human() = %q, want upstream transport", out)
	}
}

func TestHumanOmitsCoherenceDeadlineWhenNotRemoteFirst(t *testing.T) {
	t.Parallel()
	out := Human(sampleHealth())
	if strings.Contains(out, "coherence deadline") {
		t.Errorf("Human() = %q, should not print a coherence deadline outside the remote-first window", out)
	}
}

func TestHumanShowsCoherenceDeadlineWhenRemoteFirst(t *testing.T) {
	t.Parallel()
	h := sampleHealth()
	h.RemoteFirst = true
	h.CoherenceDeadline = time.Now().Add(20 * time.Second)

	out := Human(h)
	if !strings.Contains(out, "coherence deadline") {
		t.Errorf("Human() = %q, want coherence deadline when remote-first is active", out)
	}
}

func TestJSONIncludesUpstreamTransport(t *testing.T) {
	t.Parallel()
	out, err := JSON(sampleHealth())
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if !strings.Contains(out, `"Transport": "http"`) {
		t.Errorf("JSON() = %q, want upstream transport field", out)
	}
}
