package upstream

import (
	"context"
	"testing"

	"github.com/oh-my-linear/gateway/internal/apperr"
	"github.com/oh-my-linear/gateway/internal/testutil"
)

func TestCallToolStructuredContent(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockToolServer()
	defer mock.Close()
	mock.SetToolResult("list_teams", map[string]any{"teams": []string{"ENG"}})

	mgr, err := New(Config{Transport: TransportHTTP, URL: mock.URL()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer mgr.Close()

	value, err := mgr.CallTool(context.Background(), "list_teams", nil)
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}

	result, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("CallTool() result type = %T, want map[string]any", value)
	}
	if _, ok := result["teams"]; !ok {
		t.Errorf("CallTool() result missing teams key: %v", result)
	}

	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Name != "list_teams" {
		t.Errorf("mock recorded calls = %v, want one call to list_teams", calls)
	}
}

func TestCallToolSemanticErrorNeverRetried(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockToolServer()
	defer mock.Close()
	mock.SetToolError("delete_issue", errorString("issue not found"))

	mgr, err := New(Config{Transport: TransportHTTP, URL: mock.URL()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer mgr.Close()

	_, err = mgr.CallTool(context.Background(), "delete_issue", nil)
	if err == nil {
		t.Fatal("CallTool() expected a semantic error, got nil")
	}
	if !apperr.IsSemantic(err) {
		t.Errorf("CallTool() error = %v, want semantic official_tool_error", err)
	}

	// A semantic error must never be retried: exactly one call recorded.
	if calls := mock.Calls(); len(calls) != 1 {
		t.Errorf("mock recorded %d calls, want exactly 1 (no retry on semantic error)", len(calls))
	}
}

func TestCallToolTransportFailureBecomesUnavailable(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockToolServer()
	mock.Close() // closed before use: every call is a transport failure

	mgr, err := New(Config{Transport: TransportHTTP, URL: mock.URL()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer mgr.Close()

	_, err = mgr.CallTool(context.Background(), "list_teams", nil)
	if err == nil {
		t.Fatal("CallTool() expected an error against a closed server")
	}
	var toolErr *apperr.OfficialToolError
	if !asOfficialToolError(err, &toolErr) {
		t.Fatalf("CallTool() error = %v, want *apperr.OfficialToolError", err)
	}
	if toolErr.Code != apperr.CodeOfficialUnavailable {
		t.Errorf("CallTool() error code = %q, want %q", toolErr.Code, apperr.CodeOfficialUnavailable)
	}
}

func TestInvalidTransportRejectedAtConstruction(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Transport: "carrier-pigeon"})
	if err == nil {
		t.Fatal("New() with invalid transport should error")
	}
}

func TestListTools(t *testing.T) {
	t.Parallel()
	mock := testutil.NewMockToolServer()
	defer mock.Close()
	mock.SetToolResult("get_issue", map[string]any{})

	mgr, err := New(Config{Transport: TransportHTTP, URL: mock.URL()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer mgr.Close()

	names, err := mgr.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	if len(names) != 1 || names[0] != "get_issue" {
		t.Errorf("ListTools() = %v, want [get_issue]", names)
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }

func asOfficialToolError(err error, target **apperr.OfficialToolError) bool {
	t, ok := err.(*apperr.OfficialToolError)
	if !ok {
		return false
	}
	*target = t
	return true
}
