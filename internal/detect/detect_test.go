package detect

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/oh-my-linear/gateway/internal/embeddeddb"

	_ "modernc.org/sqlite"
)

// newTestDB mirrors embeddeddb's own test helper: a throwaway SQLite file
// with one table per store, each row holding a JSON-encoded value.
func newTestDB(t *testing.T, stores map[string][]map[string]any) *embeddeddb.Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linear_test.sqlite")

	setup, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open setup handle: %v", err)
	}
	for store, rows := range stores {
		if _, err := setup.Exec(`CREATE TABLE "` + store + `" (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
			t.Fatalf("create table %s: %v", store, err)
		}
		for i, row := range rows {
			raw, err := json.Marshal(row)
			if err != nil {
				t.Fatalf("marshal row: %v", err)
			}
			key := store + "-" + string(rune('a'+i))
			if _, err := setup.Exec(`INSERT INTO "`+store+`" (key, value) VALUES (?, ?)`, key, string(raw)); err != nil {
				t.Fatalf("insert row into %s: %v", store, err)
			}
		}
	}
	if err := setup.Close(); err != nil {
		t.Fatalf("close setup handle: %v", err)
	}

	db, err := embeddeddb.Open(path)
	if err != nil {
		t.Fatalf("embeddeddb.Open(): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDetectClassifiesEachKind(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, map[string][]map[string]any{
		"s_issue": {{"number": 1.0, "teamId": "team-1", "stateId": "state-1", "title": "x"}},
		"s_team":  {{"key": "ENG", "name": "Engineering"}},
		"s_user":  {{"name": "Ada", "displayName": "Ada L.", "email": "ada@example.com"}},
		"s_state": {{"name": "In Progress", "type": "started", "color": "#fff", "teamId": "team-1"}},
		"s_comment": {{
			"issueId": "issue-1", "userId": "user-1", "bodyData": "...", "createdAt": "2024-01-01",
		}},
		"s_project": {{
			"name": "Q1", "teamIds": []any{"team-1"}, "slugId": "q1", "statusId": "st-1", "memberIds": []any{},
		}},
		"s_issue_content": {{"issueId": "issue-1", "contentState": "..."}},
		"s_label":         {{"name": "bug", "color": "#f00", "isGroup": false}},
		"s_initiative": {{
			"name": "Initiative", "ownerId": "user-1", "slugId": "init", "frequencyResolution": "monthly",
		}},
		"s_project_status": {{
			"name": "Planned", "color": "#ccc", "position": 1.0, "type": "planned", "indefinite": false,
		}},
		"s_cycle":    {{"number": 3.0, "teamId": "team-1", "startsAt": "2024-01-01", "endsAt": "2024-01-14"}},
		"s_document": {{"title": "Doc", "slugId": "doc-1", "projectId": "project-1", "sortOrder": 1.0}},
		"s_document_content": {{
			"documentContentId": "doccontent-1", "contentData": "...",
		}},
		"s_milestone": {{
			"name": "M1", "projectId": "project-1", "sortOrder": 1.0, "targetDate": "2024-06-01",
		}},
		"s_project_update": {{
			"body": "status update", "projectId": "project-1", "health": "onTrack",
		}},
	})

	got, err := Detect(db)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}

	cases := []struct {
		name string
		got  []string
	}{
		{"Issues", got.Issues},
		{"Teams", got.Teams},
		{"Users", got.Users},
		{"WorkflowStates", got.WorkflowStates},
		{"Comments", got.Comments},
		{"Projects", got.Projects},
		{"IssueContent", got.IssueContent},
		{"Labels", got.Labels},
		{"Initiatives", got.Initiatives},
		{"ProjectStatuses", got.ProjectStatuses},
		{"Cycles", got.Cycles},
		{"Documents", got.Documents},
		{"DocumentContent", got.DocumentContent},
		{"Milestones", got.Milestones},
		{"ProjectUpdates", got.ProjectUpdates},
	}
	for _, c := range cases {
		if len(c.got) != 1 {
			t.Errorf("Detect() classified %d stores as %s, want exactly 1 (got %v)", len(c.got), c.name, c.got)
		}
	}
}

func TestDetectSkipsPrivateAndPartialStores(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, map[string][]map[string]any{
		"_meta":             {{"version": 1.0}},
		"issues_partial":    {{"number": 1.0, "teamId": "team-1", "stateId": "state-1", "title": "x"}},
		"issues":            {{"number": 1.0, "teamId": "team-1", "stateId": "state-1", "title": "x"}},
	})

	got, err := Detect(db)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(got.Issues) != 1 || got.Issues[0] != "issues" {
		t.Errorf("Detect() Issues = %v, want only the non-prefixed, non-partial store", got.Issues)
	}
}

func TestDetectDocumentVsIssueDisambiguation(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, map[string][]map[string]any{
		"docs": {{"title": "Doc", "slugId": "doc-1", "projectId": "project-1", "sortOrder": 1.0}},
	})

	got, err := Detect(db)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(got.Documents) != 1 {
		t.Errorf("Detect() Documents = %v, want the docs store classified as a document", got.Documents)
	}
	if len(got.Issues) != 0 {
		t.Errorf("Detect() misclassified the document store as an issue store: %v", got.Issues)
	}
}

func TestDetectProjectStatusVsWorkflowStateDisambiguation(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, map[string][]map[string]any{
		"statuses": {{"name": "Planned", "color": "#ccc", "position": 1.0, "type": "planned", "indefinite": false}},
	})

	got, err := Detect(db)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(got.ProjectStatuses) != 1 {
		t.Errorf("Detect() ProjectStatuses = %v, want the statuses store classified", got.ProjectStatuses)
	}
	if len(got.WorkflowStates) != 0 {
		t.Errorf("Detect() misclassified a project status as a workflow state: %v", got.WorkflowStates)
	}
}

func TestMissingReportsAbsentRequiredKinds(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, map[string][]map[string]any{
		"teams": {{"key": "ENG", "name": "Engineering"}},
	})

	got, err := Detect(db)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	missing := got.Missing()

	want := map[string]bool{"issues": true, "users": true, "workflow_states": true, "projects": true}
	if len(missing) != len(want) {
		t.Fatalf("Missing() = %v, want %d entries", missing, len(want))
	}
	for _, m := range missing {
		if !want[m] {
			t.Errorf("Missing() reported unexpected kind %q", m)
		}
	}
}

func TestMissingEmptyWhenAllRequiredKindsPresent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t, map[string][]map[string]any{
		"issues":  {{"number": 1.0, "teamId": "team-1", "stateId": "state-1", "title": "x"}},
		"teams":   {{"key": "ENG", "name": "Engineering"}},
		"users":   {{"name": "Ada", "displayName": "Ada L.", "email": "ada@example.com"}},
		"states":  {{"name": "In Progress", "type": "started", "color": "#fff", "teamId": "team-1"}},
		"projects": {{
			"name": "Q1", "teamIds": []any{"team-1"}, "slugId": "q1", "statusId": "st-1", "memberIds": []any{},
		}},
	})

	got, err := Detect(db)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if missing := got.Missing(); len(missing) != 0 {
		t.Errorf("Missing() = %v, want none", missing)
	}
}
