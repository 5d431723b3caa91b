package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuetracker/internal/events"
	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

type issueScene struct {
	*fixture
	owner, member, stranger model.User
	project                 model.Project
}

func newIssueScene(t *testing.T) *issueScene {
	t.Helper()
	f := newFixture(t)
	s := &issueScene{fixture: f}
	s.owner = f.store.SeedUser("Owner")
	s.member = f.store.SeedUser("Member")
	s.stranger = f.store.SeedUser("Stranger")
	s.project = f.store.SeedProject("Web", s.owner.ID, s.owner.ID, s.member.ID)
	return s
}

func (s *issueScene) titles(status model.IssueStatus) []string {
	var titles []string
	for _, is := range s.store.Column(s.project.ID, status) {
		titles = append(titles, is.Title)
	}
	return titles
}

func statusPtr(v model.IssueStatus) *model.IssueStatus { return &v }
func intPtr(v int) *int                                 { return &v }

func TestIssueService_CreateAppendsToColumn(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	s.store.SeedIssue("A", s.project.ID, s.owner.ID, model.StatusOpen, 0)
	s.store.SeedIssue("B", s.project.ID, s.owner.ID, model.StatusOpen, 1)

	created, err := s.issues.Create(ctx, s.member.ID, CreateIssueInput{ProjectID: s.project.ID, Title: "  C  "})

	require.NoError(t, err)
	assert.Equal(t, "C", created.Title)
	assert.Equal(t, 2, created.Order)
	assert.Equal(t, model.StatusOpen, created.Status)
	assert.Equal(t, model.TypeBug, created.Type)
	assert.Equal(t, model.PriorityMedium, created.Priority)
	assert.Equal(t, s.member.ID, created.CreatedBy)
	assert.Equal(t, []events.Type{events.IssueCreated}, s.recorder.Types())

	first, err := s.issues.Create(ctx, s.member.ID, CreateIssueInput{
		ProjectID: s.project.ID, Title: "Z", Status: statusPtr(model.StatusOpen), Order: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, []string{"Z", "A", "B", "C"}, s.titles(model.StatusOpen))

	done, err := s.issues.Create(ctx, s.member.ID, CreateIssueInput{ProjectID: s.project.ID, Title: "D", Status: statusPtr(model.StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, 0, done.Order, "an empty column starts at zero")
}

func TestIssueService_CreateRejections(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()

	_, err := s.issues.Create(ctx, s.member.ID, CreateIssueInput{Title: "x"})
	assertKind(t, err, KindValidation)
	_, err = s.issues.Create(ctx, s.member.ID, CreateIssueInput{ProjectID: s.project.ID, Title: " "})
	assertKind(t, err, KindValidation)
	_, err = s.issues.Create(ctx, s.stranger.ID, CreateIssueInput{ProjectID: s.project.ID, Title: "x"})
	assertKind(t, err, KindForbidden)
	_, err = s.issues.Create(ctx, s.member.ID, CreateIssueInput{ProjectID: uuid.New(), Title: "x"})
	assertKind(t, err, KindNotFound)
	_, err = s.issues.Create(ctx, s.member.ID, CreateIssueInput{ProjectID: s.project.ID, Title: "x", AssigneeID: &s.stranger.ID})
	assertKind(t, err, KindValidation)
	_, err = s.issues.Create(ctx, s.member.ID, CreateIssueInput{ProjectID: s.project.ID, Title: "x", Order: intPtr(-1)})
	assertKind(t, err, KindValidation)

	assert.Empty(t, s.store.Column(s.project.ID, model.StatusOpen))
	assert.Empty(t, s.recorder.Types())
}

func TestIssueService_CreateWithAssigneePublishesAssignment(t *testing.T) {
	s := newIssueScene(t)

	created, err := s.issues.Create(context.Background(), s.owner.ID, CreateIssueInput{
		ProjectID: s.project.ID, Title: "x", AssigneeID: &s.member.ID,
	})

	require.NoError(t, err)
	require.NotNil(t, created.Assignee)
	assert.Equal(t, s.member.Name, created.Assignee.Name)
	ev, ok := s.recorder.Last(events.IssueAssigned)
	require.True(t, ok)
	assert.Equal(t, s.member.ID.String(), ev.Payload["assignee_id"])
	assert.Equal(t, "Web", ev.Payload["project_name"])
}

func TestIssueService_UpdateRejectsNonMemberAssignee(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	is := s.store.SeedIssue("Bug", s.project.ID, s.member.ID, model.StatusOpen, 0)
	title := "Renamed"

	_, err := s.issues.Update(ctx, s.member.ID, is.ID, UpdateIssueInput{Title: &title, AssigneeID: &s.stranger.ID})

	assertKind(t, err, KindValidation)
	stored, _ := s.store.Issue(is.ID)
	assert.Equal(t, "Bug", stored.Title)
	assert.Nil(t, stored.AssigneeID)
	assert.Empty(t, s.recorder.Types())
}

func TestIssueService_UpdateFieldsAndAssignment(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	is := s.store.SeedIssue("Bug", s.project.ID, s.member.ID, model.StatusOpen, 0)
	prio := model.PriorityUrgent

	updated, err := s.issues.Update(ctx, s.member.ID, is.ID, UpdateIssueInput{Priority: &prio, AssigneeID: &s.owner.ID})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityUrgent, updated.Priority)
	assert.Equal(t, &s.owner.ID, updated.AssigneeID)
	assert.Equal(t, []events.Type{events.IssueUpdated, events.IssueAssigned}, s.recorder.Types())

	// same assignee again is not a new assignment
	_, err = s.issues.Update(ctx, s.member.ID, is.ID, UpdateIssueInput{AssigneeID: &s.owner.ID})
	require.NoError(t, err)
	assert.Equal(t, []events.Type{events.IssueUpdated, events.IssueAssigned, events.IssueUpdated}, s.recorder.Types())

	updated, err = s.issues.Update(ctx, s.member.ID, is.ID, UpdateIssueInput{ClearAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)

	_, err = s.issues.Update(ctx, s.stranger.ID, is.ID, UpdateIssueInput{Priority: &prio})
	assertKind(t, err, KindForbidden)
	_, err = s.issues.Update(ctx, s.member.ID, uuid.New(), UpdateIssueInput{Priority: &prio})
	assertKind(t, err, KindNotFound)
}

func TestIssueService_UpdateStatusMovesThroughEngine(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	a := s.store.SeedIssue("A", s.project.ID, s.member.ID, model.StatusOpen, 0)
	s.store.SeedIssue("B", s.project.ID, s.member.ID, model.StatusOpen, 1)
	s.store.SeedIssue("X", s.project.ID, s.member.ID, model.StatusDone, 0)

	moved, err := s.issues.Update(ctx, s.member.ID, a.ID, UpdateIssueInput{Status: statusPtr(model.StatusDone)})

	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, moved.Status)
	assert.Equal(t, 1, moved.Order)
	assert.Equal(t, []string{"B"}, s.titles(model.StatusOpen))
	assert.Equal(t, []string{"X", "A"}, s.titles(model.StatusDone))
	assert.Equal(t, 0, s.store.Column(s.project.ID, model.StatusOpen)[0].Order)

	ev, ok := s.recorder.Last(events.IssueMoved)
	require.True(t, ok)
	assert.Equal(t, "open", ev.Payload["from_status"])
	assert.Equal(t, "done", ev.Payload["to_status"])
	assert.Equal(t, "1", ev.Payload["to_order"])

	_, err = s.issues.Update(ctx, s.member.ID, a.ID, UpdateIssueInput{Order: intPtr(-2)})
	assertKind(t, err, KindValidation)
}

func TestIssueService_UpdateSameStatusKeepsPosition(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	a := s.store.SeedIssue("A", s.project.ID, s.member.ID, model.StatusOpen, 0)
	s.store.SeedIssue("B", s.project.ID, s.member.ID, model.StatusOpen, 1)
	s.store.SeedIssue("C", s.project.ID, s.member.ID, model.StatusOpen, 2)

	title := "A renamed"
	updated, err := s.issues.Update(ctx, s.member.ID, a.ID, UpdateIssueInput{Title: &title, Status: statusPtr(model.StatusOpen)})

	require.NoError(t, err)
	assert.Equal(t, 0, updated.Order)
	assert.Equal(t, []string{"A renamed", "B", "C"}, s.titles(model.StatusOpen))
	_, moved := s.recorder.Last(events.IssueMoved)
	assert.False(t, moved)

	// an explicit order still repositions within the column
	updated, err = s.issues.Update(ctx, s.member.ID, a.ID, UpdateIssueInput{Status: statusPtr(model.StatusOpen), Order: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Order)
	assert.Equal(t, []string{"B", "C", "A renamed"}, s.titles(model.StatusOpen))
}

func TestIssueService_Reorder(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	s.store.SeedIssue("A", s.project.ID, s.member.ID, model.StatusInProgress, 0)
	s.store.SeedIssue("B", s.project.ID, s.member.ID, model.StatusInProgress, 1)
	c := s.store.SeedIssue("C", s.project.ID, s.member.ID, model.StatusInProgress, 2)

	moved, err := s.issues.Reorder(ctx, s.owner.ID, c.ID, ReorderInput{Order: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Order)
	assert.Equal(t, []string{"C", "A", "B"}, s.titles(model.StatusInProgress))

	// no-op moves publish nothing
	before := len(s.recorder.Types())
	_, err = s.issues.Reorder(ctx, s.owner.ID, c.ID, ReorderInput{Order: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, s.recorder.Types(), before)

	_, err = s.issues.Reorder(ctx, s.stranger.ID, c.ID, ReorderInput{Order: intPtr(1)})
	assertKind(t, err, KindForbidden)
	_, err = s.issues.Reorder(ctx, s.owner.ID, c.ID, ReorderInput{Order: intPtr(-1)})
	assertKind(t, err, KindValidation)
}

func TestIssueService_ReorderBusyProject(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	a := s.store.SeedIssue("A", s.project.ID, s.member.ID, model.StatusOpen, 0)
	lease, err := s.locker.Obtain(ctx, "reorder:"+s.project.ID.String(), time.Second, time.Second)
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = s.issues.Reorder(ctx, s.member.ID, a.ID, ReorderInput{Status: statusPtr(model.StatusDone)})

	assertKind(t, err, KindConflict)
	stored, _ := s.store.Issue(a.ID)
	assert.Equal(t, model.StatusOpen, stored.Status)
}

func TestIssueService_DeleteAuthorization(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	byMember := s.store.SeedIssue("mine", s.project.ID, s.member.ID, model.StatusOpen, 0)
	byOwner := s.store.SeedIssue("owners", s.project.ID, s.owner.ID, model.StatusOpen, 1)

	assertKind(t, s.issues.Delete(ctx, s.member.ID, byOwner.ID), KindForbidden)
	assertKind(t, s.issues.Delete(ctx, s.stranger.ID, byMember.ID), KindForbidden)
	assertKind(t, s.issues.Delete(ctx, s.member.ID, uuid.New()), KindNotFound)

	require.NoError(t, s.issues.Delete(ctx, s.member.ID, byMember.ID))
	require.NoError(t, s.issues.Delete(ctx, s.owner.ID, byOwner.ID))
	assert.Empty(t, s.store.Column(s.project.ID, model.StatusOpen))
}

func TestIssueService_List(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	api := s.store.SeedProject("API", s.member.ID)
	hidden := s.store.SeedProject("Hidden", s.stranger.ID)
	s.store.SeedIssue("web-1", s.project.ID, s.member.ID, model.StatusOpen, 1)
	s.store.SeedIssue("web-0", s.project.ID, s.member.ID, model.StatusOpen, 0)
	s.store.SeedIssue("api-0", api.ID, s.member.ID, model.StatusOpen, 0)
	s.store.SeedIssue("hidden", hidden.ID, s.stranger.ID, model.StatusOpen, 0)

	board, err := s.issues.List(ctx, s.member.ID, IssueQuery{ProjectID: &s.project.ID})
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "web-0", board[0].Title)
	assert.Equal(t, "web-1", board[1].Title)

	all, err := s.issues.List(ctx, s.member.ID, IssueQuery{})
	require.NoError(t, err)
	var titles []string
	for _, is := range all {
		titles = append(titles, is.Title)
	}
	assert.Equal(t, []string{"api-0", "web-0", "web-1"}, titles, "cross-project lists are most recent first")

	_, err = s.issues.List(ctx, s.member.ID, IssueQuery{ProjectID: &hidden.ID})
	assertKind(t, err, KindForbidden)

	found, err := s.issues.List(ctx, s.member.ID, IssueQuery{Search: "API"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestIssueService_AssignedPages(t *testing.T) {
	s := newIssueScene(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		is := s.store.SeedIssue("task", s.project.ID, s.owner.ID, model.StatusOpen, i)
		_, err := s.issues.Update(ctx, s.owner.ID, is.ID, UpdateIssueInput{AssigneeID: &s.member.ID})
		require.NoError(t, err)
	}
	s.store.SeedIssue("unassigned", s.project.ID, s.owner.ID, model.StatusOpen, 5)

	page, err := s.issues.Assigned(ctx, s.member.ID, PageQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Issues, 2)

	page, err = s.issues.Assigned(ctx, s.member.ID, PageQuery{Page: -3, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageLimit, page.Limit)
	assert.Len(t, page.Issues, 5)

	created, err := s.issues.Created(ctx, s.owner.ID, PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), created.Total)
	assert.Equal(t, DefaultPageLimit, created.Limit)
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		key  string
		want []repository.SortField
	}{
		{"-updatedAt", []repository.SortField{{Field: repository.SortByUpdatedAt, Desc: true}}},
		{"title", []repository.SortField{{Field: repository.SortByTitle}}},
		{"-order", []repository.SortField{{Field: repository.SortByOrder, Desc: true}}},
		{"", repository.RecentSort},
		{"password", repository.RecentSort},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSort(tt.key))
		})
	}
}
