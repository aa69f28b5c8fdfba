package testutil

import (
	"time"

	"github.com/oh-my-linear/gateway/internal/entity"
)

// Entity fixture builders for cache and dispatch table tests. Adapted from
// the predecessor's GraphQL-response fixture builders to the entity record
// shape the embedded store yields: plain structs, not nodes/edges maps.

var fixtureTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func FixtureTeam() entity.Team {
	return entity.Team{ID: "team-123", Key: "TST", Name: "Test Team", OrganizationID: "org-1"}
}

func FixtureUser() entity.User {
	return entity.User{
		ID: "user-123", Name: "Test User", DisplayName: "Test User",
		Email: "test@example.com", OrganizationID: "org-1", Active: true,
	}
}

func FixtureState(stateType string) entity.WorkflowState {
	names := map[string]string{
		entity.StateTypeBacklog:   "Backlog",
		entity.StateTypeUnstarted: "Todo",
		entity.StateTypeStarted:   "In Progress",
		entity.StateTypeCompleted: "Done",
		entity.StateTypeCanceled:  "Canceled",
	}
	name, ok := names[stateType]
	if !ok {
		name, stateType = "Todo", entity.StateTypeUnstarted
	}
	return entity.WorkflowState{ID: "state-" + stateType, Name: name, Type: stateType, TeamID: "team-123"}
}

func FixtureLabel(name string) entity.Label {
	return entity.Label{ID: "label-" + name, Name: name, Color: "#ff0000", TeamID: "team-123"}
}

func FixtureIssue() entity.Issue {
	return entity.Issue{
		ID: "issue-123", Identifier: "TST-123", Title: "Test Issue",
		Description: "This is a test issue description", Number: 123, Priority: 2,
		TeamID: "team-123", StateID: "state-started", AssigneeID: "user-123",
		LabelIDs:  []string{"label-Bug", "label-Backend"},
		CreatedAt: fixtureTime, UpdatedAt: fixtureTime.Add(24 * time.Hour),
	}
}

func FixtureIssueMinimal() entity.Issue {
	return entity.Issue{
		ID: "issue-456", Identifier: "TST-456", Title: "Minimal Issue",
		TeamID: "team-123", StateID: "state-unstarted",
		CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	}
}

func FixtureComment() entity.Comment {
	return entity.Comment{
		ID: "comment-123", IssueID: "issue-123", UserID: "user-123",
		Body: "This is a test comment", CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	}
}

func FixtureDocument() entity.Document {
	return entity.Document{
		ID: "doc-123", Title: "Test Document", SlugID: "test-document",
		CreatorID: "user-123", CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	}
}

func FixtureProject() entity.Project {
	targetDate := "2024-06-30"
	return entity.Project{
		ID: "project-123", Name: "Test Project", SlugID: "test-project",
		Description: "A test project", State: "started", TeamIDs: []string{"team-123"},
		LeadID: "user-123", TargetDate: &targetDate,
		CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	}
}

func FixtureInitiative() entity.Initiative {
	return entity.Initiative{
		ID: "initiative-123", Name: "Test Initiative", SlugID: "test-initiative",
		Status: "active", OwnerID: "user-123", TeamIDs: []string{"team-123"},
		CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	}
}

func FixtureCycle() entity.Cycle {
	return entity.Cycle{
		ID: "cycle-123", Number: 42, TeamID: "team-123",
		StartsAt: fixtureTime, EndsAt: fixtureTime.AddDate(0, 0, 14),
	}
}

func FixtureProjectUpdate() entity.ProjectUpdate {
	return entity.ProjectUpdate{
		ID: "update-123", Body: "Sprint completed successfully", Health: "onTrack",
		ProjectID: "project-123", UserID: "user-123",
		CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	}
}

func FixtureMilestone() entity.Milestone {
	return entity.Milestone{ID: "milestone-123", Name: "Beta", ProjectID: "project-123", SortOrder: 1}
}
