package cache

import (
	"fmt"
	"time"

	"github.com/oh-my-linear/gateway/internal/detect"
	"github.com/oh-my-linear/gateway/internal/embeddeddb"
	"github.com/oh-my-linear/gateway/internal/entity"
	"github.com/oh-my-linear/gateway/internal/richtext"
)

// Snapshot is the immutable (after install) denormalized, indexed view the
// reader serves reads from. The reader replaces it atomically on reload
// in one atomic pointer swap, so readers never observe a half-built
// snapshot.
type Snapshot struct {
	Teams          map[string]entity.Team
	Users          map[string]entity.User
	States         map[string]entity.WorkflowState
	Issues         map[string]entity.Issue
	Comments       map[string]entity.Comment
	Projects       map[string]entity.Project
	Labels         map[string]entity.Label
	Initiatives    map[string]entity.Initiative
	Cycles         map[string]entity.Cycle
	Documents      map[string]entity.Document
	Milestones     map[string]entity.Milestone
	ProjectUpdates map[string]entity.ProjectUpdate
	ProjectStatuses map[string]entity.ProjectStatus

	// *Order preserves first-seen insertion order per entity kind, for the
	// find_* scoring contract's tie-break rule: ties broken by insertion
	// order.
	UserOrder       []string
	TeamOrder       []string
	ProjectOrder    []string
	InitiativeOrder []string
	DocumentOrder   []string
	MilestoneOrder  []string
	StateOrder      []string
	IssueOrder      []string

	issueContentByIssue map[string]string // raw CRDT text, keyed by issueId; used only for description backfill

	CommentsByIssue        map[string][]string
	IssueCountsByTeam      map[string]int
	IssueCountsByProject   map[string]int
	IssueCountsByUser      map[string]int
	IssueStateCountsByTeam map[string]map[string]int
	IssueStateCountsByProject map[string]map[string]int
	IssueStateCountsByUser map[string]map[string]int

	LoadedAt time.Time

	Degraded       bool
	DegradedReason string
	HardStoreErrors int
	SoftErrors      map[string]int // store kind -> count, currently only "issue_content"
	DetectedMissing []string
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Teams:           map[string]entity.Team{},
		Users:           map[string]entity.User{},
		States:          map[string]entity.WorkflowState{},
		Issues:          map[string]entity.Issue{},
		Comments:        map[string]entity.Comment{},
		Projects:        map[string]entity.Project{},
		Labels:          map[string]entity.Label{},
		Initiatives:     map[string]entity.Initiative{},
		Cycles:          map[string]entity.Cycle{},
		Documents:       map[string]entity.Document{},
		Milestones:      map[string]entity.Milestone{},
		ProjectUpdates:  map[string]entity.ProjectUpdate{},
		ProjectStatuses: map[string]entity.ProjectStatus{},

		issueContentByIssue: map[string]string{},

		CommentsByIssue:           map[string][]string{},
		IssueCountsByTeam:         map[string]int{},
		IssueCountsByProject:      map[string]int{},
		IssueCountsByUser:         map[string]int{},
		IssueStateCountsByTeam:    map[string]map[string]int{},
		IssueStateCountsByProject: map[string]map[string]int{},
		IssueStateCountsByUser:    map[string]map[string]int{},

		SoftErrors: map[string]int{},
	}
}

// IsExpired reports whether the snapshot is older than ttl (invariant 6).
func (s *Snapshot) IsExpired(ttl time.Duration, now time.Time) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.LoadedAt) > ttl
}

// load builds a fresh snapshot from every Linear-owned database under
// storeRoot.
func load(storeRoot string, loadDocumentContent bool, scope ScopeConfig) (*Snapshot, error) {
	snap := newSnapshot()

	dbPaths, err := embeddeddb.DiscoverDatabases(storeRoot)
	if err != nil {
		return nil, fmt.Errorf("discover embedded databases: %w", err)
	}
	if len(dbPaths) == 0 {
		if err := applyScope(snap, scope); err != nil {
			return nil, err
		}
		snap.Degraded = true
		snap.DegradedReason = "no linear-owned embedded databases found"
		snap.LoadedAt = time.Now()
		return snap, nil
	}

	var latestDocUpdatedAt = map[string]string{} // documentId -> updatedAt string, for the "greatest updatedAt wins" rule

	for _, path := range dbPaths {
		db, err := embeddeddb.Open(path)
		if err != nil {
			snap.HardStoreErrors++
			continue
		}

		stores, err := detect.Detect(db)
		if err != nil {
			db.Close()
			snap.HardStoreErrors++
			continue
		}

		loadKind(db, stores.Teams, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			t := entity.Team{ID: str(v, "id"), Key: str(v, "key"), Name: str(v, "name"), OrganizationID: str(v, "organizationId")}
			if _, exists := snap.Teams[t.ID]; !exists {
				snap.TeamOrder = append(snap.TeamOrder, t.ID)
			}
			snap.Teams[t.ID] = t
		})
		loadKind(db, stores.Users, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			u := entity.User{
				ID: str(v, "id"), Name: str(v, "name"), DisplayName: str(v, "displayName"),
				Email: str(v, "email"), OrganizationID: str(v, "organizationId"),
				UserAccountID: str(v, "userAccountId"), Active: boolVal(v, "active"),
			}
			if _, exists := snap.Users[u.ID]; !exists {
				snap.UserOrder = append(snap.UserOrder, u.ID)
			}
			snap.Users[u.ID] = u
		})
		loadKind(db, stores.WorkflowStates, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			ws := entity.WorkflowState{
				ID: str(v, "id"), Name: str(v, "name"), Type: str(v, "type"),
				Color: str(v, "color"), TeamID: str(v, "teamId"), Position: floatVal(v, "position"),
			}
			if _, exists := snap.States[ws.ID]; !exists {
				snap.StateOrder = append(snap.StateOrder, ws.ID)
			}
			snap.States[ws.ID] = ws
		})
		loadKind(db, stores.Issues, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			i := entity.Issue{
				ID: str(v, "id"), Title: str(v, "title"), Description: str(v, "description"),
				Number: intVal(v, "number"), Priority: intVal(v, "priority"), Estimate: optFloat(v, "estimate"),
				TeamID: str(v, "teamId"), StateID: str(v, "stateId"), AssigneeID: str(v, "assigneeId"),
				ProjectID: str(v, "projectId"), LabelIDs: strSlice(v, "labelIds"), DueDate: optStr(v, "dueDate"),
				CreatedAt: timeVal(v, "createdAt"), UpdatedAt: timeVal(v, "updatedAt"),
			}
			if _, exists := snap.Issues[i.ID]; !exists {
				snap.IssueOrder = append(snap.IssueOrder, i.ID)
			}
			snap.Issues[i.ID] = i
		})
		loadKind(db, stores.Comments, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			body := richtext.FlattenProseMirror(v["bodyData"])
			c := entity.Comment{
				ID: str(v, "id"), IssueID: str(v, "issueId"), UserID: str(v, "userId"), Body: body,
				CreatedAt: timeVal(v, "createdAt"), UpdatedAt: timeVal(v, "updatedAt"),
			}
			snap.Comments[c.ID] = c
		})
		loadKind(db, stores.Projects, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			p := entity.Project{
				ID: str(v, "id"), Name: str(v, "name"), Description: str(v, "description"),
				SlugID: str(v, "slugId"), StatusID: str(v, "statusId"), Priority: intVal(v, "priority"),
				TeamIDs: strSlice(v, "teamIds"), MemberIDs: strSlice(v, "memberIds"), LeadID: str(v, "leadId"),
				StartDate: optStr(v, "startDate"), TargetDate: optStr(v, "targetDate"),
				CreatedAt: timeVal(v, "createdAt"), UpdatedAt: timeVal(v, "updatedAt"),
			}
			if _, exists := snap.Projects[p.ID]; !exists {
				snap.ProjectOrder = append(snap.ProjectOrder, p.ID)
			}
			snap.Projects[p.ID] = p
		})
		loadKind(db, stores.Labels, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			l := entity.Label{
				ID: str(v, "id"), Name: str(v, "name"), Color: str(v, "color"),
				IsGroup: boolVal(v, "isGroup"), ParentID: str(v, "parentId"), TeamID: str(v, "teamId"),
			}
			snap.Labels[l.ID] = l
		})
		loadKind(db, stores.Initiatives, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			init := entity.Initiative{
				ID: str(v, "id"), Name: str(v, "name"), SlugID: str(v, "slugId"), Status: str(v, "status"),
				OwnerID: str(v, "ownerId"), TeamIDs: strSlice(v, "teamIds"),
				CreatedAt: timeVal(v, "createdAt"), UpdatedAt: timeVal(v, "updatedAt"),
			}
			if _, exists := snap.Initiatives[init.ID]; !exists {
				snap.InitiativeOrder = append(snap.InitiativeOrder, init.ID)
			}
			snap.Initiatives[init.ID] = init
		})
		loadKind(db, stores.Cycles, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			c := entity.Cycle{
				ID: str(v, "id"), Number: intVal(v, "number"), TeamID: str(v, "teamId"),
				StartsAt: timeVal(v, "startsAt"), EndsAt: timeVal(v, "endsAt"),
				CompletedAt: optTime(v, "completedAt"), CurrentProgress: floatVal(v, "currentProgress"),
			}
			snap.Cycles[c.ID] = c
		})
		loadKind(db, stores.Documents, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			id := str(v, "id")
			updatedAt := str(v, "updatedAt")
			// Invariant 4: the record with the lexically greatest updatedAt wins.
			if prev, ok := latestDocUpdatedAt[id]; ok && prev >= updatedAt {
				return
			}
			latestDocUpdatedAt[id] = updatedAt
			d := entity.Document{
				ID: id, Title: str(v, "title"), SlugID: str(v, "slugId"), ProjectID: str(v, "projectId"),
				CreatorID: str(v, "creatorId"), CreatedAt: timeVal(v, "createdAt"), UpdatedAt: timeVal(v, "updatedAt"),
			}
			if _, exists := snap.Documents[d.ID]; !exists {
				snap.DocumentOrder = append(snap.DocumentOrder, d.ID)
			}
			snap.Documents[d.ID] = d
		})
		loadKind(db, stores.Milestones, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			m := entity.Milestone{
				ID: str(v, "id"), Name: str(v, "name"), ProjectID: str(v, "projectId"),
				TargetDate: optStr(v, "targetDate"), SortOrder: floatVal(v, "sortOrder"),
				CurrentProgress: floatVal(v, "currentProgress"),
			}
			if _, exists := snap.Milestones[m.ID]; !exists {
				snap.MilestoneOrder = append(snap.MilestoneOrder, m.ID)
			}
			snap.Milestones[m.ID] = m
		})
		loadKind(db, stores.ProjectUpdates, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			pu := entity.ProjectUpdate{
				ID: str(v, "id"), Body: str(v, "body"), Health: str(v, "health"),
				ProjectID: str(v, "projectId"), UserID: str(v, "userId"),
				CreatedAt: timeVal(v, "createdAt"), UpdatedAt: timeVal(v, "updatedAt"),
			}
			snap.ProjectUpdates[pu.ID] = pu
		})
		loadKind(db, stores.ProjectStatuses, snap.HardStoreErrorsPtr(), func(v map[string]any) {
			ps := entity.ProjectStatus{ID: str(v, "id"), Name: str(v, "name"), Color: str(v, "color"), Type: str(v, "type")}
			snap.ProjectStatuses[ps.ID] = ps
		})

		// issue_content is the one soft-error store: this asymmetry — tolerate
		// this store missing, degrade on others — is
		// deliberate and kept explicit rather than generalized).
		if loadDocumentContent {
			for _, storeName := range stores.IssueContent {
				err := db.AllRecords(storeName, func(rec embeddeddb.Record) error {
					if rec.Value == nil {
						return nil
					}
					issueID := str(rec.Value, "issueId")
					contentState, _ := rec.Value["contentState"].(string)
					if issueID == "" || contentState == "" {
						return nil
					}
					snap.issueContentByIssue[issueID] = richtext.ExtractCRDTText(contentState)
					return nil
				})
				if err != nil {
					snap.SoftErrors["issue_content"]++
				}
			}
		}

		snap.DetectedMissing = stores.Missing()
		db.Close()
	}

	// Post-load fixups: identifier derivation, project.state resolution,
	// issue description backfill, account scope, derived indexes, degraded
	// determination.
	if err := finalize(snap, scope); err != nil {
		return nil, err
	}

	snap.LoadedAt = time.Now()
	return snap, nil
}

// HardStoreErrorsPtr exists so loadKind can increment the counter without
// the caller threading an extra parameter through every closure.
func (s *Snapshot) HardStoreErrorsPtr() *int {
	return &s.HardStoreErrors
}

func loadKind(db *embeddeddb.Database, stores []string, hardErrors *int, apply func(map[string]any)) {
	for _, storeName := range stores {
		err := db.AllRecords(storeName, func(rec embeddeddb.Record) error {
			if rec.Value == nil {
				return nil // skip records with no value
			}
			apply(rec.Value)
			return nil
		})
		if err != nil {
			*hardErrors++
		}
	}
}

func finalize(snap *Snapshot, scope ScopeConfig) error {
	// Invariant 5: project.state is derived from project_statuses after all
	// databases have been merged, never from the raw record's own field.
	for id, p := range snap.Projects {
		if status, ok := snap.ProjectStatuses[p.StatusID]; ok {
			p.State = status.Name
		}
		snap.Projects[id] = p
	}

	if err := applyScope(snap, scope); err != nil {
		return err
	}

	// Invariant 1 & testable property 6: identifier is always derived.
	for id, issue := range snap.Issues {
		team, ok := snap.Teams[issue.TeamID]
		if ok && team.Key != "" {
			issue.Identifier = fmt.Sprintf("%s-%d", team.Key, issue.Number)
		} else {
			issue.Identifier = fmt.Sprintf("???-%d", issue.Number)
		}
		if issue.Description == "" {
			if content, ok := snap.issueContentByIssue[issue.ID]; ok && content != "" {
				issue.Description = content
			}
		}
		snap.Issues[id] = issue
	}

	buildIndexes(snap)
	determineHealth(snap)
	return nil
}

func buildIndexes(snap *Snapshot) {
	for _, c := range snap.Comments {
		snap.CommentsByIssue[c.IssueID] = append(snap.CommentsByIssue[c.IssueID], c.ID)
	}

	stateType := func(stateID string) string {
		if st, ok := snap.States[stateID]; ok {
			switch st.Type {
			case entity.StateTypeBacklog, entity.StateTypeUnstarted, entity.StateTypeStarted, entity.StateTypeCompleted, entity.StateTypeCanceled:
				return st.Type
			}
		}
		return entity.StateTypeUnknown
	}

	bump := func(counts map[string]int, stateCounts map[string]map[string]int, key, st string) {
		if key == "" {
			return
		}
		counts[key]++
		m, ok := stateCounts[key]
		if !ok {
			m = map[string]int{}
			stateCounts[key] = m
		}
		m[st]++
	}

	for _, issue := range snap.Issues {
		st := stateType(issue.StateID)
		bump(snap.IssueCountsByTeam, snap.IssueStateCountsByTeam, issue.TeamID, st)
		bump(snap.IssueCountsByProject, snap.IssueStateCountsByProject, issue.ProjectID, st)
		bump(snap.IssueCountsByUser, snap.IssueStateCountsByUser, issue.AssigneeID, st)
	}
}

func determineHealth(snap *Snapshot) {
	if len(snap.DetectedMissing) > 0 {
		snap.Degraded = true
		snap.DegradedReason = "missing required stores: " + joinStrings(snap.DetectedMissing)
		return
	}
	if len(snap.Issues) == 0 || len(snap.Teams) == 0 || len(snap.Users) == 0 {
		snap.Degraded = true
		snap.DegradedReason = "required entities are missing"
		return
	}
	if snap.HardStoreErrors > 0 {
		snap.Degraded = true
		snap.DegradedReason = fmt.Sprintf("store read errors: %d", snap.HardStoreErrors)
		return
	}
	snap.Degraded = false
	snap.DegradedReason = ""
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
