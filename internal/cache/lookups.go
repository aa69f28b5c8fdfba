package cache

import (
	"sort"
	"strings"

	"github.com/oh-my-linear/gateway/internal/entity"
)

// Teams, Users, States, Issues, Comments, Projects, Labels, Initiatives,
// Cycles, Documents, Milestones, and ProjectUpdates are read-only views over
// the current snapshot; each first calls ensureCache so callers never see a
// stale-beyond-TTL snapshot by accident.

func (r *Reader) Teams() (map[string]entity.Team, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Teams, nil
}

func (r *Reader) Users() (map[string]entity.User, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Users, nil
}

func (r *Reader) States() (map[string]entity.WorkflowState, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.States, nil
}

func (r *Reader) Issues() (map[string]entity.Issue, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Issues, nil
}

func (r *Reader) Comments() (map[string]entity.Comment, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Comments, nil
}

func (r *Reader) Projects() (map[string]entity.Project, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Projects, nil
}

func (r *Reader) Labels() (map[string]entity.Label, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Labels, nil
}

func (r *Reader) Initiatives() (map[string]entity.Initiative, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Initiatives, nil
}

func (r *Reader) Cycles() (map[string]entity.Cycle, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Cycles, nil
}

func (r *Reader) Documents() (map[string]entity.Document, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Documents, nil
}

func (r *Reader) Milestones() (map[string]entity.Milestone, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.Milestones, nil
}

func (r *Reader) ProjectUpdates() (map[string]entity.ProjectUpdate, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.ProjectUpdates, nil
}

// GetIssueByIdentifier does a case-insensitive linear scan over issues for
// a matching derived identifier.
func (r *Reader) GetIssueByIdentifier(identifier string) (entity.Issue, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.Issue{}, false, err
	}
	lower := strings.ToLower(identifier)
	for _, issue := range s.Issues {
		if strings.ToLower(issue.Identifier) == lower {
			return issue, true, nil
		}
	}
	return entity.Issue{}, false, nil
}

// GetCommentsForIssue returns comments for issueId sorted ascending by
// createdAt.
func (r *Reader) GetCommentsForIssue(issueID string) ([]entity.Comment, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	ids := s.CommentsByIssue[issueID]
	out := make([]entity.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Comments[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetCyclesForTeam returns cycles for teamId sorted descending by number.
func (r *Reader) GetCyclesForTeam(teamID string) ([]entity.Cycle, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	var out []entity.Cycle
	for _, c := range s.Cycles {
		if c.TeamID == teamID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

// GetMilestonesForProject returns milestones for projectId sorted ascending
// by sortOrder.
func (r *Reader) GetMilestonesForProject(projectID string) ([]entity.Milestone, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	var out []entity.Milestone
	for _, m := range s.Milestones {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// GetUpdatesForProject returns project updates for projectId sorted
// descending by createdAt.
func (r *Reader) GetUpdatesForProject(projectID string) ([]entity.ProjectUpdate, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	var out []entity.ProjectUpdate
	for _, u := range s.ProjectUpdates {
		if u.ProjectID == projectID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Reader) GetIssueCountForTeam(teamID string) (int, error) {
	s, err := r.ensureCache()
	if err != nil {
		return 0, err
	}
	return s.IssueCountsByTeam[teamID], nil
}

func (r *Reader) GetIssueCountForProject(projectID string) (int, error) {
	s, err := r.ensureCache()
	if err != nil {
		return 0, err
	}
	return s.IssueCountsByProject[projectID], nil
}

func (r *Reader) GetIssueCountForUser(userID string) (int, error) {
	s, err := r.ensureCache()
	if err != nil {
		return 0, err
	}
	return s.IssueCountsByUser[userID], nil
}

func (r *Reader) GetIssueStateCountsForTeam(teamID string) (map[string]int, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.IssueStateCountsByTeam[teamID], nil
}

func (r *Reader) GetIssueStateCountsForProject(projectID string) (map[string]int, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.IssueStateCountsByProject[projectID], nil
}

func (r *Reader) GetIssueStateCountsForUser(userID string) (map[string]int, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	return s.IssueStateCountsByUser[userID], nil
}

// SearchIssues does a case-insensitive substring search on title, stopping
// at limit.
func (r *Reader) SearchIssues(q string, limit int) ([]entity.Issue, error) {
	s, err := r.ensureCache()
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(q)
	var out []entity.Issue
	for _, id := range s.IssueOrder {
		issue, ok := s.Issues[id]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(issue.Title), lower) {
			out = append(out, issue)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Summary is entity counts for health.
type Summary struct {
	Teams, Users, States, Issues, Comments, Projects, Labels int
	Initiatives, Cycles, Documents, Milestones, ProjectUpdates int
}

func (r *Reader) GetSummary() (Summary, error) {
	s, err := r.ensureCache()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Teams: len(s.Teams), Users: len(s.Users), States: len(s.States),
		Issues: len(s.Issues), Comments: len(s.Comments), Projects: len(s.Projects),
		Labels: len(s.Labels), Initiatives: len(s.Initiatives), Cycles: len(s.Cycles),
		Documents: len(s.Documents), Milestones: len(s.Milestones), ProjectUpdates: len(s.ProjectUpdates),
	}, nil
}
