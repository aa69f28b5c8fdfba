// Package detect implements the store detector: given an opened embedded
// database, sample one record per object store and classify it into an
// entity kind by checking required-field predicates, applied in the same priority
// order.
package detect

import (
	"regexp"
	"strings"

	"github.com/oh-my-linear/gateway/internal/embeddeddb"
)

// DetectedStores maps each entity kind to the store name(s) that hold it.
// Users, workflow states, and labels may be spread across multiple stores
// (per-team and per-workspace). Every kind collects every matching store in
// iteration order; no kind is limited to a single store.
type DetectedStores struct {
	Issues           []string
	Teams            []string
	Users            []string
	WorkflowStates   []string
	Comments         []string
	Projects         []string
	IssueContent     []string
	Labels           []string
	Initiatives      []string
	ProjectStatuses  []string
	Cycles           []string
	Documents        []string
	DocumentContent  []string
	Milestones       []string
	ProjectUpdates   []string
}

var teamKeyRe = regexp.MustCompile(`^[A-Z]+$`)
var validStateTypes = map[string]bool{
	"backlog": true, "unstarted": true, "started": true, "completed": true, "canceled": true,
}

func has(v map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := v[k]; !ok {
			return false
		}
	}
	return true
}

func lacks(v map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := v[k]; ok {
			return false
		}
	}
	return true
}

func isIssueRecord(v map[string]any) bool {
	return has(v, "number", "teamId", "stateId", "title")
}

func isTeamRecord(v map[string]any) bool {
	if !has(v, "key", "name") {
		return false
	}
	key, ok := v["key"].(string)
	if !ok || key == "" || len(key) > 10 {
		return false
	}
	return teamKeyRe.MatchString(key)
}

func isUserRecord(v map[string]any) bool {
	return has(v, "name", "displayName", "email")
}

func isWorkflowStateRecord(v map[string]any) bool {
	if !has(v, "name", "type", "color", "teamId") {
		return false
	}
	t, ok := v["type"].(string)
	return ok && validStateTypes[t]
}

func isCommentRecord(v map[string]any) bool {
	return has(v, "issueId", "userId", "bodyData", "createdAt")
}

func isProjectRecord(v map[string]any) bool {
	return has(v, "name", "teamIds", "slugId", "statusId", "memberIds")
}

func isIssueContentRecord(v map[string]any) bool {
	return has(v, "issueId", "contentState")
}

func isLabelRecord(v map[string]any) bool {
	return has(v, "name", "color", "isGroup")
}

func isInitiativeRecord(v map[string]any) bool {
	return has(v, "name", "ownerId", "slugId", "frequencyResolution")
}

// isProjectStatusRecord requires the absence of teamId, which distinguishes
// it from the lookalike workflow-state shape (checked first in Detect).
func isProjectStatusRecord(v map[string]any) bool {
	return has(v, "name", "color", "position", "type", "indefinite") && lacks(v, "teamId")
}

func isCycleRecord(v map[string]any) bool {
	return has(v, "number", "teamId", "startsAt", "endsAt")
}

// isDocumentRecord must lack both number and stateId, which distinguishes it
// from an issue.
func isDocumentRecord(v map[string]any) bool {
	return has(v, "title", "slugId", "projectId", "sortOrder") && lacks(v, "number", "stateId")
}

func isDocumentContentRecord(v map[string]any) bool {
	return has(v, "documentContentId", "contentData")
}

func isMilestoneRecord(v map[string]any) bool {
	if !has(v, "name", "projectId", "sortOrder") {
		return false
	}
	_, hasProgress := v["currentProgress"]
	_, hasTarget := v["targetDate"]
	return hasProgress || hasTarget
}

// isProjectUpdateRecord must lack issueId, which distinguishes it from a
// comment (both carry a body-shaped field).
func isProjectUpdateRecord(v map[string]any) bool {
	if _, ok := v["body"]; !ok {
		return false
	}
	_, hasProject := v["projectId"]
	_, hasHealth := v["health"]
	if !hasProject && !hasHealth {
		return false
	}
	return lacks(v, "issueId")
}

// Detect samples one record per object store in db and classifies it,
// skipping stores named with a leading "_" or containing "_partial"
// Predicates are applied in a fixed priority order that
// deliberately breaks ties between structurally similar shapes; callers must
// not reorder it.
func Detect(db *embeddeddb.Database) (DetectedStores, error) {
	var out DetectedStores

	names, err := db.ObjectStoreNames()
	if err != nil {
		return out, err
	}

	for _, name := range names {
		if name == "" || strings.HasPrefix(name, "_") || strings.Contains(name, "_partial") {
			continue
		}

		rec, ok, err := db.FirstRecord(name)
		if err != nil {
			return out, err
		}
		if !ok || rec.Value == nil {
			continue
		}
		v := rec.Value

		switch {
		case isIssueRecord(v):
			out.Issues = append(out.Issues, name)
		case isTeamRecord(v):
			out.Teams = append(out.Teams, name)
		case isUserRecord(v):
			out.Users = append(out.Users, name)
		case isWorkflowStateRecord(v):
			out.WorkflowStates = append(out.WorkflowStates, name)
		case isCommentRecord(v):
			out.Comments = append(out.Comments, name)
		case isProjectRecord(v):
			out.Projects = append(out.Projects, name)
		case isIssueContentRecord(v):
			out.IssueContent = append(out.IssueContent, name)
		case isLabelRecord(v):
			out.Labels = append(out.Labels, name)
		case isInitiativeRecord(v):
			out.Initiatives = append(out.Initiatives, name)
		case isProjectStatusRecord(v):
			out.ProjectStatuses = append(out.ProjectStatuses, name)
		case isCycleRecord(v):
			out.Cycles = append(out.Cycles, name)
		case isDocumentRecord(v):
			out.Documents = append(out.Documents, name)
		case isDocumentContentRecord(v):
			out.DocumentContent = append(out.DocumentContent, name)
		case isMilestoneRecord(v):
			out.Milestones = append(out.Milestones, name)
		case isProjectUpdateRecord(v):
			out.ProjectUpdates = append(out.ProjectUpdates, name)
		}
	}

	return out, nil
}

// Missing reports which of the required kinds (issues, teams, users,
// workflow states, projects) had no detected store, for the reader's
// degraded-health determination.
func (d DetectedStores) Missing() []string {
	var missing []string
	if len(d.Issues) == 0 {
		missing = append(missing, "issues")
	}
	if len(d.Teams) == 0 {
		missing = append(missing, "teams")
	}
	if len(d.Users) == 0 {
		missing = append(missing, "users")
	}
	if len(d.WorkflowStates) == 0 {
		missing = append(missing, "workflow_states")
	}
	if len(d.Projects) == 0 {
		missing = append(missing, "projects")
	}
	return missing
}
