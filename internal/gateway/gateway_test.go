package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/oh-my-linear/gateway/internal/cache"
	"github.com/oh-my-linear/gateway/internal/config"
	"github.com/oh-my-linear/gateway/internal/dispatch"
	"github.com/oh-my-linear/gateway/internal/router"
	"github.com/oh-my-linear/gateway/internal/testutil"
	"github.com/oh-my-linear/gateway/internal/upstream"
)

// testApp builds an App with a real cache.Reader and a real upstream
// SessionManager pointed at a MockToolServer, skipping gateway.New's process
// wiring (which would dial a real npx subprocess) but exercising Dispatch
// and ServeStdio exactly as built.
func testApp(t *testing.T) (*App, *testutil.MockToolServer) {
	t.Helper()
	snap := cache.NewTestSnapshot()
	team := testutil.FixtureTeam()
	snap.Teams[team.ID] = team
	user := testutil.FixtureUser()
	snap.Users[user.ID] = user
	issue := testutil.FixtureIssue()
	snap.Issues[issue.ID] = issue
	reader := cache.NewForTest(snap)

	mock := testutil.NewMockToolServer()
	t.Cleanup(mock.Close)

	official, err := upstream.New(upstream.Config{Transport: upstream.TransportHTTP, URL: mock.URL()})
	if err != nil {
		t.Fatalf("upstream.New() error: %v", err)
	}
	t.Cleanup(func() { official.Close() })

	rt := router.New(reader, official, dispatch.Default(), 30*time.Second)
	app := &App{Config: &config.Config{}, Reader: reader, Official: official, Router: rt}
	return app, mock
}

func TestDispatchRoutesReadLocally(t *testing.T) {
	t.Parallel()
	app, mock := testApp(t)

	value, err := app.Dispatch(context.Background(), "list_teams", nil)
	if err != nil {
		t.Fatalf("Dispatch(list_teams) error: %v", err)
	}
	if value == nil {
		t.Error("Dispatch(list_teams) returned nil value")
	}
	if calls := mock.Calls(); len(calls) != 0 {
		t.Errorf("a local read dispatch should never touch upstream, got %v", calls)
	}
}

func TestDispatchRoutesWritesUpstream(t *testing.T) {
	t.Parallel()
	app, mock := testApp(t)
	mock.SetToolResult("create_issue", map[string]any{"id": "issue-new"})

	value, err := app.Dispatch(context.Background(), "create_issue", map[string]any{"title": "x"})
	if err != nil {
		t.Fatalf("Dispatch(create_issue) error: %v", err)
	}
	result, ok := value.(map[string]any)
	if !ok || result["id"] != "issue-new" {
		t.Errorf("Dispatch(create_issue) = %v, want upstream create result", value)
	}
	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Name != "create_issue" {
		t.Errorf("expected exactly one upstream create_issue call, got %v", calls)
	}
}

func TestServeStdioRoundTrip(t *testing.T) {
	t.Parallel()
	app, _ := testApp(t)

	input := strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"list_teams","arguments":{}}}` + "\n")
	var output bytes.Buffer

	if err := app.ServeStdio(context.Background(), input, &output); err != nil {
		t.Fatalf("ServeStdio() error: %v", err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v, raw: %s", err, output.String())
	}
	if resp.Error != nil {
		t.Fatalf("ServeStdio() returned an error response: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Error("ServeStdio() response missing result")
	}
}

func TestServeStdioReportsToolErrorCode(t *testing.T) {
	t.Parallel()
	app, mock := testApp(t)
	mock.SetToolError("create_issue", sentinelErr("invalid title"))

	input := strings.NewReader(`{"jsonrpc":"2.0","id":"2","method":"tools/call","params":{"name":"create_issue","arguments":{}}}` + "\n")
	var output bytes.Buffer

	if err := app.ServeStdio(context.Background(), input, &output); err != nil {
		t.Fatalf("ServeStdio() error: %v", err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v, raw: %s", err, output.String())
	}
	if resp.Error == nil || resp.Error.Code != "official_tool_error" {
		t.Errorf("ServeStdio() error response = %+v, want code official_tool_error", resp.Error)
	}
}

func TestServeStdioSkipsMalformedLines(t *testing.T) {
	t.Parallel()
	app, _ := testApp(t)

	input := strings.NewReader("not json at all\n" +
		`{"jsonrpc":"2.0","id":"3","method":"tools/call","params":{"name":"list_teams","arguments":{}}}` + "\n")
	var output bytes.Buffer

	if err := app.ServeStdio(context.Background(), input, &output); err != nil {
		t.Fatalf("ServeStdio() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("ServeStdio() produced %d responses, want 1 (malformed line dropped)", len(lines))
	}
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }
