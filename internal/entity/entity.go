// Package entity holds the plain record types the cache reader loads,
// denormalizes, and indexes. All identifiers are strings, matching the
// vendor's own id scheme; no entity is mutated after a snapshot is
// installed except the one-time project.state fixup (see cache.Snapshot).
package entity

import "time"

type Team struct {
	ID             string
	Key            string
	Name           string
	OrganizationID string
}

type User struct {
	ID             string
	Name           string
	DisplayName    string
	Email          string
	OrganizationID string
	UserAccountID  string
	Active         bool
}

// WorkflowState.Type is one of the five canonical state types, or "unknown"
// when it cannot be resolved (see Issue.StateType in cache indexes).
type WorkflowState struct {
	ID       string
	Name     string
	Type     string
	Color    string
	TeamID   string
	Position float64
}

const (
	StateTypeBacklog   = "backlog"
	StateTypeUnstarted = "unstarted"
	StateTypeStarted   = "started"
	StateTypeCompleted = "completed"
	StateTypeCanceled  = "canceled"
	StateTypeUnknown   = "unknown"
)

// Issue.Identifier is always derived ("{teamKey}-{number}"), never trusted
// from the raw record.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	Number      int
	Priority    int
	Estimate    *float64
	TeamID      string
	StateID     string
	AssigneeID  string
	ProjectID   string
	LabelIDs    []string
	DueDate     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Comment struct {
	ID        string
	IssueID   string
	UserID    string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Project struct {
	ID          string
	Name        string
	Description string
	SlugID      string
	StatusID    string
	State       string // resolved post-load from ProjectStatus.Name, never the raw record's own field
	Priority    int
	TeamIDs     []string
	MemberIDs   []string
	LeadID      string
	StartDate   *string
	TargetDate  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Label struct {
	ID       string
	Name     string
	Color    string
	IsGroup  bool
	ParentID string
	TeamID   string // nullable
}

type Initiative struct {
	ID        string
	Name      string
	SlugID    string
	Status    string
	OwnerID   string
	TeamIDs   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Cycle struct {
	ID              string
	Number          int
	TeamID          string
	StartsAt        time.Time
	EndsAt          time.Time
	CompletedAt     *time.Time
	CurrentProgress float64
}

type Document struct {
	ID        string
	Title     string
	SlugID    string
	ProjectID string
	CreatorID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Milestone struct {
	ID              string
	Name            string
	ProjectID       string
	TargetDate      *string
	SortOrder       float64
	CurrentProgress float64
}

type ProjectUpdate struct {
	ID        string
	Body      string
	Health    string
	ProjectID string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProjectStatus struct {
	ID    string
	Name  string
	Color string
	Type  string
}
