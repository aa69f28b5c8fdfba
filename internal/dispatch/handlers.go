// Package dispatch holds the local-handler dispatch table: individual
// per-tool read handlers that are thin projections over the
// cache reader and share a common dispatch table, so only the dispatch
// contract is specified"). Each handler is a thin projection; the set
// below is representative, not exhaustive — new read tools register here
// without touching the router.
package dispatch

import (
	"strings"

	"github.com/oh-my-linear/gateway/internal/apperr"
	"github.com/oh-my-linear/gateway/internal/cache"
	"github.com/oh-my-linear/gateway/internal/entity"
)

// Handler is a local read projection over the cache reader. It may return
// *apperr.LocalFallbackRequested (cause unsupported_filter) when args
// describe a filter combination the local index can't serve, asking the
// router to fall back upstream.
type Handler func(reader *cache.Reader, args map[string]any) (any, error)

// Table is the name -> handler registry the router consults to decide
// both whether a tool is a registered local read handler (for write
// detection) and what to call on the local path.
type Table map[string]Handler

// Default builds the registry of local read handlers this gateway
// implements.
func Default() Table {
	return Table{
		"list_teams":            listTeams,
		"get_team":              getTeam,
		"list_users":            listUsers,
		"get_user":              getUser,
		"list_issues":           listIssues,
		"get_issue":             getIssue,
		"search_issues":         searchIssues,
		"list_projects":         listProjects,
		"get_project":           getProject,
		"list_cycles":           listCycles,
		"list_labels":           listLabels,
		"list_initiatives":      listInitiatives,
		"list_documents":        listDocuments,
		"list_milestones":       listMilestones,
		"list_project_updates":  listProjectUpdates,
		"get_comments_for_issue": getCommentsForIssue,
	}
}

func argStr(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argInt(args map[string]any, key string, def int) int {
	if n, ok := args[key].(float64); ok {
		return int(n)
	}
	if n, ok := args[key].(int); ok {
		return n
	}
	return def
}

func mapValues[T any](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func listTeams(reader *cache.Reader, args map[string]any) (any, error) {
	teams, err := reader.Teams()
	if err != nil {
		return nil, err
	}
	return mapValues(teams), nil
}

func getTeam(reader *cache.Reader, args map[string]any) (any, error) {
	q := argStr(args, "query")
	if q == "" {
		q = argStr(args, "id")
	}
	team, ok, err := reader.FindTeam(q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return team, nil
}

func listUsers(reader *cache.Reader, args map[string]any) (any, error) {
	users, err := reader.Users()
	if err != nil {
		return nil, err
	}
	return mapValues(users), nil
}

func getUser(reader *cache.Reader, args map[string]any) (any, error) {
	q := argStr(args, "query")
	if q == "" {
		q = argStr(args, "email")
	}
	user, ok, err := reader.FindUser(q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return user, nil
}

// supportedIssueFilters is the set of filter keys the local index can
// serve; anything else triggers a per-call unsupported_filter fallback.
var supportedIssueFilters = map[string]bool{"teamId": true, "projectId": true, "assigneeId": true}

func listIssues(reader *cache.Reader, args map[string]any) (any, error) {
	for k := range args {
		if !supportedIssueFilters[k] {
			return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
		}
	}

	issues, err := reader.Issues()
	if err != nil {
		return nil, err
	}

	teamID := argStr(args, "teamId")
	projectID := argStr(args, "projectId")
	assigneeID := argStr(args, "assigneeId")

	var out []entity.Issue
	for _, issue := range issues {
		if teamID != "" && issue.TeamID != teamID {
			continue
		}
		if projectID != "" && issue.ProjectID != projectID {
			continue
		}
		if assigneeID != "" && issue.AssigneeID != assigneeID {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

func getIssue(reader *cache.Reader, args map[string]any) (any, error) {
	if id := argStr(args, "id"); id != "" {
		issues, err := reader.Issues()
		if err != nil {
			return nil, err
		}
		if issue, ok := issues[id]; ok {
			return issue, nil
		}
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	identifier := argStr(args, "identifier")
	issue, ok, err := reader.GetIssueByIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return issue, nil
}

func searchIssues(reader *cache.Reader, args map[string]any) (any, error) {
	q := argStr(args, "query")
	limit := argInt(args, "limit", 50)
	issues, err := reader.SearchIssues(strings.TrimSpace(q), limit)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func listProjects(reader *cache.Reader, args map[string]any) (any, error) {
	projects, err := reader.Projects()
	if err != nil {
		return nil, err
	}
	return mapValues(projects), nil
}

func getProject(reader *cache.Reader, args map[string]any) (any, error) {
	q := argStr(args, "query")
	project, ok, err := reader.FindProject(q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return project, nil
}

func listCycles(reader *cache.Reader, args map[string]any) (any, error) {
	teamID := argStr(args, "teamId")
	if teamID == "" {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return reader.GetCyclesForTeam(teamID)
}

func listLabels(reader *cache.Reader, args map[string]any) (any, error) {
	labels, err := reader.Labels()
	if err != nil {
		return nil, err
	}
	return mapValues(labels), nil
}

func listInitiatives(reader *cache.Reader, args map[string]any) (any, error) {
	initiatives, err := reader.Initiatives()
	if err != nil {
		return nil, err
	}
	return mapValues(initiatives), nil
}

func listDocuments(reader *cache.Reader, args map[string]any) (any, error) {
	projectID := argStr(args, "projectId")
	documents, err := reader.Documents()
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return mapValues(documents), nil
	}
	var out []entity.Document
	for _, d := range documents {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func listMilestones(reader *cache.Reader, args map[string]any) (any, error) {
	projectID := argStr(args, "projectId")
	if projectID == "" {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return reader.GetMilestonesForProject(projectID)
}

func listProjectUpdates(reader *cache.Reader, args map[string]any) (any, error) {
	projectID := argStr(args, "projectId")
	if projectID == "" {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return reader.GetUpdatesForProject(projectID)
}

func getCommentsForIssue(reader *cache.Reader, args map[string]any) (any, error) {
	issueID := argStr(args, "issueId")
	if issueID == "" {
		return nil, apperr.NewFallback(apperr.CauseUnsupportedFilter)
	}
	return reader.GetCommentsForIssue(issueID)
}
