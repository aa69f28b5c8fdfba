package cache

import (
	"strings"

	"github.com/oh-my-linear/gateway/internal/entity"
)

// Scoring contract for fuzzy lookups. Case-insensitive; highest score wins,
// ties broken by insertion order (earliest wins).
const (
	scoreExactID       = 100
	scoreExactName     = 90
	scorePrefixProject = 80
	scorePrefixOther   = 70
	scoreSlugExact     = 70
	scoreTokenPrefix   = 50
	scoreDisplayPrefix = 40
	scoreSubstring     = 10
)

// best picks the highest-scoring id from candidates (id -> score), with
// order used only to break ties, earliest entry in order wins.
func best(order []string, score func(id string) (int, bool)) (string, bool) {
	bestID := ""
	bestScore := -1
	found := false
	for _, id := range order {
		s, ok := score(id)
		if !ok {
			continue
		}
		found = true
		if s > bestScore {
			bestScore = s
			bestID = id
		}
	}
	return bestID, found
}

func scoreName(q, name string) (int, bool) {
	lq, ln := strings.ToLower(q), strings.ToLower(name)
	if ln == "" || !strings.Contains(ln, lq) {
		return 0, false
	}
	switch {
	case ln == lq:
		return scoreExactName, true
	case strings.HasPrefix(ln, lq):
		return scorePrefixOther, true
	case strings.Contains(ln, " "+lq):
		return scoreTokenPrefix, true
	default:
		return scoreSubstring, true
	}
}

// scoreDisplayName mirrors scoreName's priority chain over displayName.
func scoreDisplayName(q, display string) (int, bool) {
	lq, ld := strings.ToLower(q), strings.ToLower(display)
	if ld == "" || !strings.Contains(ld, lq) {
		return 0, false
	}
	switch {
	case ld == lq:
		return scoreExactName, true
	case strings.HasPrefix(ld, lq):
		return scoreDisplayPrefix, true
	default:
		return scoreSubstring, true
	}
}

// FindUser matches email or ID exactly, then scores name/displayName; users
// have no key or slug. Name
// and displayName are scored independently and the higher of the two wins,
// so a weak name-substring match never shadows a stronger displayName-prefix
// match.
func (r *Reader) FindUser(q string) (entity.User, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.User{}, false, err
	}
	lq := strings.ToLower(q)
	id, ok := best(s.UserOrder, func(id string) (int, bool) {
		u, exists := s.Users[id]
		if !exists {
			return 0, false
		}
		if strings.ToLower(u.Email) == lq || strings.ToLower(u.ID) == lq {
			return scoreExactID, true
		}
		bestScore := 0
		matched := false
		if sc, ok := scoreName(q, u.Name); ok && sc > bestScore {
			bestScore = sc
			matched = true
		}
		if sc, ok := scoreDisplayName(q, u.DisplayName); ok && sc > bestScore {
			bestScore = sc
			matched = true
		}
		return bestScore, matched
	})
	if !ok {
		return entity.User{}, false, nil
	}
	return s.Users[id], true, nil
}

func (r *Reader) FindTeam(q string) (entity.Team, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.Team{}, false, err
	}
	lq := strings.ToLower(q)
	id, ok := best(s.TeamOrder, func(id string) (int, bool) {
		t, exists := s.Teams[id]
		if !exists {
			return 0, false
		}
		if strings.ToLower(t.Key) == lq {
			return scoreExactID, true
		}
		return scoreName(q, t.Name)
	})
	if !ok {
		return entity.Team{}, false, nil
	}
	return s.Teams[id], true, nil
}

func (r *Reader) FindProject(q string) (entity.Project, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.Project{}, false, err
	}
	lq := strings.ToLower(q)
	id, ok := best(s.ProjectOrder, func(id string) (int, bool) {
		p, exists := s.Projects[id]
		if !exists {
			return 0, false
		}
		if strings.ToLower(p.ID) == lq {
			return scoreExactID, true
		}
		ln := strings.ToLower(p.Name)
		if ln != "" {
			if ln == lq {
				return scoreExactName, true
			}
			if strings.HasPrefix(ln, lq) {
				return scorePrefixProject, true
			}
		}
		if strings.ToLower(p.SlugID) == lq {
			return scoreSlugExact, true
		}
		if ln != "" {
			if strings.Contains(ln, " "+lq) {
				return scoreTokenPrefix, true
			}
			if strings.Contains(ln, lq) {
				return scoreSubstring, true
			}
		}
		return 0, false
	})
	if !ok {
		return entity.Project{}, false, nil
	}
	return s.Projects[id], true, nil
}

func (r *Reader) FindInitiative(q string) (entity.Initiative, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.Initiative{}, false, err
	}
	lq := strings.ToLower(q)
	id, ok := best(s.InitiativeOrder, func(id string) (int, bool) {
		init, exists := s.Initiatives[id]
		if !exists {
			return 0, false
		}
		if strings.ToLower(init.SlugID) == lq {
			return scoreSlugExact, true
		}
		return scoreName(q, init.Name)
	})
	if !ok {
		return entity.Initiative{}, false, nil
	}
	return s.Initiatives[id], true, nil
}

func (r *Reader) FindDocument(q string) (entity.Document, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.Document{}, false, err
	}
	lq := strings.ToLower(q)
	id, ok := best(s.DocumentOrder, func(id string) (int, bool) {
		d, exists := s.Documents[id]
		if !exists {
			return 0, false
		}
		if strings.ToLower(d.SlugID) == lq {
			return scoreSlugExact, true
		}
		return scoreName(q, d.Title)
	})
	if !ok {
		return entity.Document{}, false, nil
	}
	return s.Documents[id], true, nil
}

// FindMilestone scores only among milestones belonging to projectID.
func (r *Reader) FindMilestone(projectID, q string) (entity.Milestone, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.Milestone{}, false, err
	}
	var scoped []string
	for _, id := range s.MilestoneOrder {
		if m, ok := s.Milestones[id]; ok && m.ProjectID == projectID {
			scoped = append(scoped, id)
		}
	}
	id, ok := best(scoped, func(id string) (int, bool) {
		m := s.Milestones[id]
		return scoreName(q, m.Name)
	})
	if !ok {
		return entity.Milestone{}, false, nil
	}
	return s.Milestones[id], true, nil
}

// FindIssueStatus scores workflow states belonging to teamID.
func (r *Reader) FindIssueStatus(teamID, q string) (entity.WorkflowState, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return entity.WorkflowState{}, false, err
	}
	var scoped []string
	for _, id := range s.StateOrder {
		if st, ok := s.States[id]; ok && st.TeamID == teamID {
			scoped = append(scoped, id)
		}
	}
	lq := strings.ToLower(q)
	id, ok := best(scoped, func(id string) (int, bool) {
		st := s.States[id]
		if strings.ToLower(st.Type) == lq {
			return scoreExactID, true
		}
		return scoreName(q, st.Name)
	})
	if !ok {
		return entity.WorkflowState{}, false, nil
	}
	return s.States[id], true, nil
}

// GetStateName/GetStateType/GetUserName/GetTeamKey/GetProjectName/GetLabelName
// are thin id -> display-field lookups, grounded on reader.py's same-named
// helpers; they return ("", false) rather than erroring on a missing id.

func (r *Reader) GetStateName(id string) (string, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return "", false, err
	}
	st, ok := s.States[id]
	return st.Name, ok, nil
}

func (r *Reader) GetStateType(id string) (string, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return "", false, err
	}
	st, ok := s.States[id]
	return st.Type, ok, nil
}

func (r *Reader) GetUserName(id string) (string, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return "", false, err
	}
	u, ok := s.Users[id]
	return u.Name, ok, nil
}

func (r *Reader) GetTeamKey(id string) (string, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return "", false, err
	}
	t, ok := s.Teams[id]
	return t.Key, ok, nil
}

func (r *Reader) GetProjectName(id string) (string, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return "", false, err
	}
	p, ok := s.Projects[id]
	return p.Name, ok, nil
}

func (r *Reader) GetLabelName(id string) (string, bool, error) {
	s, err := r.ensureCache()
	if err != nil {
		return "", false, err
	}
	l, ok := s.Labels[id]
	return l.Name, ok, nil
}
