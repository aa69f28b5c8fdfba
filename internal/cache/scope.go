package cache

import (
	"fmt"
	"strings"
)

// ScopeConfig activates account/organization scoping when either field is
// non-empty.
type ScopeConfig struct {
	AccountEmails  []string
	UserAccountIDs []string
}

func (c ScopeConfig) active() bool {
	return len(c.AccountEmails) > 0 || len(c.UserAccountIDs) > 0
}

// applyScope filters snap in place to the transitive closure of the
// configured accounts/organizations. It returns an error — a hard failure,
// never degradation — if either derived allow-set resolves empty.
func applyScope(snap *Snapshot, cfg ScopeConfig) error {
	if !cfg.active() {
		return nil
	}

	allowedAccountIDs := map[string]bool{}
	for _, id := range cfg.UserAccountIDs {
		allowedAccountIDs[id] = true
	}

	allowedEmails := map[string]bool{}
	for _, e := range cfg.AccountEmails {
		allowedEmails[strings.ToLower(e)] = true
	}
	for _, u := range snap.Users {
		if allowedEmails[strings.ToLower(u.Email)] && u.UserAccountID != "" {
			allowedAccountIDs[u.UserAccountID] = true
		}
	}
	if len(allowedAccountIDs) == 0 {
		return fmt.Errorf("account scope misconfigured: no account ids resolved from configured emails/ids")
	}

	allowedOrgs := map[string]bool{}
	for _, u := range snap.Users {
		if allowedAccountIDs[u.UserAccountID] && u.OrganizationID != "" {
			allowedOrgs[u.OrganizationID] = true
		}
	}
	if len(allowedOrgs) == 0 {
		return fmt.Errorf("account scope misconfigured: no organizations resolved from configured accounts")
	}

	// Users and teams filter directly by organization.
	allowedUsers := map[string]bool{}
	for id, u := range snap.Users {
		if allowedOrgs[u.OrganizationID] {
			allowedUsers[id] = true
		} else {
			delete(snap.Users, id)
		}
	}

	allowedTeams := map[string]bool{}
	for id, t := range snap.Teams {
		if allowedOrgs[t.OrganizationID] {
			allowedTeams[id] = true
		} else {
			delete(snap.Teams, id)
		}
	}

	for id, st := range snap.States {
		if !allowedTeams[st.TeamID] {
			delete(snap.States, id)
		}
	}

	retainedIssues := map[string]bool{}
	for id, issue := range snap.Issues {
		if allowedTeams[issue.TeamID] {
			retainedIssues[id] = true
		} else {
			delete(snap.Issues, id)
		}
	}

	for id, c := range snap.Comments {
		if !retainedIssues[c.IssueID] {
			delete(snap.Comments, id)
		}
	}
	for issueID := range snap.issueContentByIssue {
		if !retainedIssues[issueID] {
			delete(snap.issueContentByIssue, issueID)
		}
	}

	retainedProjects := map[string]bool{}
	for id, p := range snap.Projects {
		keep := anyIn(p.TeamIDs, allowedTeams)
		if !keep && len(p.TeamIDs) == 0 && allowedUsers[p.LeadID] {
			keep = true
		}
		if !keep {
			for _, m := range p.MemberIDs {
				if allowedUsers[m] {
					keep = true
					break
				}
			}
		}
		if keep {
			retainedProjects[id] = true
		} else {
			delete(snap.Projects, id)
		}
	}

	for id, l := range snap.Labels {
		if l.TeamID != "" && !allowedTeams[l.TeamID] {
			delete(snap.Labels, id)
		}
	}

	for id, init := range snap.Initiatives {
		if anyIn(init.TeamIDs, allowedTeams) || allowedUsers[init.OwnerID] {
			continue
		}
		delete(snap.Initiatives, id)
	}

	for id, c := range snap.Cycles {
		if !allowedTeams[c.TeamID] {
			delete(snap.Cycles, id)
		}
	}

	for id, d := range snap.Documents {
		keep := retainedProjects[d.ProjectID]
		if !keep && d.ProjectID == "" && allowedUsers[d.CreatorID] {
			keep = true
		}
		if !keep {
			delete(snap.Documents, id)
		}
	}

	for id, m := range snap.Milestones {
		if !retainedProjects[m.ProjectID] {
			delete(snap.Milestones, id)
		}
	}

	for id, pu := range snap.ProjectUpdates {
		if !retainedProjects[pu.ProjectID] {
			delete(snap.ProjectUpdates, id)
		}
	}

	referencedStatuses := map[string]bool{}
	for _, p := range snap.Projects {
		if p.StatusID != "" {
			referencedStatuses[p.StatusID] = true
		}
	}
	for id := range snap.ProjectStatuses {
		if !referencedStatuses[id] {
			delete(snap.ProjectStatuses, id)
		}
	}

	return nil
}

func anyIn(ids []string, allowed map[string]bool) bool {
	for _, id := range ids {
		if allowed[id] {
			return true
		}
	}
	return false
}
