package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuetracker/internal/events"
	"issuetracker/internal/model"
)

func TestProjectService_CreateListsOwnerAsMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")

	p, err := f.projects.Create(ctx, owner.ID, CreateProjectInput{Name: "Web", MemberIDs: []uuid.UUID{member.ID, owner.ID}})

	require.NoError(t, err)
	assert.Equal(t, owner.ID, p.CreatedBy)
	assert.Equal(t, model.ProjectPlanning, p.Status)
	assert.ElementsMatch(t, []uuid.UUID{owner.ID, member.ID}, p.MemberIDs())
	assert.Equal(t, owner.Name, p.Creator.Name)

	_, err = f.projects.Create(ctx, owner.ID, CreateProjectInput{Name: " "})
	assertKind(t, err, KindValidation)
	_, err = f.projects.Create(ctx, owner.ID, CreateProjectInput{Name: "X", MemberIDs: []uuid.UUID{uuid.New()}})
	assertKind(t, err, KindValidation)
}

func TestProjectService_MembershipGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	stranger := f.store.SeedUser("Stranger")
	// owner deliberately absent from the member set
	p := f.store.SeedProject("Web", owner.ID, member.ID)

	_, err := f.projects.Get(ctx, owner.ID, p.ID)
	assert.NoError(t, err)
	_, err = f.projects.Get(ctx, member.ID, p.ID)
	assert.NoError(t, err)
	_, err = f.projects.Get(ctx, stranger.ID, p.ID)
	assertKind(t, err, KindForbidden)
	_, err = f.projects.Get(ctx, owner.ID, uuid.New())
	assertKind(t, err, KindNotFound)

	list, err := f.projects.List(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.projects.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProjectService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	other := f.store.SeedUser("Other")
	p := f.store.SeedProject("Web", owner.ID, owner.ID, member.ID)

	name := "Website"
	status := model.ProjectActive
	updated, err := f.projects.Update(ctx, member.ID, p.ID, UpdateProjectInput{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Website", updated.Name)
	assert.Equal(t, model.ProjectActive, updated.Status)

	members := []uuid.UUID{owner.ID, other.ID}
	_, err = f.projects.Update(ctx, member.ID, p.ID, UpdateProjectInput{MemberIDs: &members})
	assertKind(t, err, KindForbidden)

	updated, err = f.projects.Update(ctx, owner.ID, p.ID, UpdateProjectInput{MemberIDs: &members})
	require.NoError(t, err)
	assert.ElementsMatch(t, members, updated.MemberIDs())

	_, err = f.projects.Update(ctx, member.ID, p.ID, UpdateProjectInput{Name: &name})
	assertKind(t, err, KindForbidden)
}

func TestProjectService_UpdateRejectedMembersWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	p := f.store.SeedProject("Web", owner.ID, owner.ID, member.ID)

	name := "Renamed"
	unknown := []uuid.UUID{owner.ID, uuid.New()}
	_, err := f.projects.Update(ctx, owner.ID, p.ID, UpdateProjectInput{Name: &name, MemberIDs: &unknown})
	assertKind(t, err, KindValidation)

	current, err := f.projects.Get(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Web", current.Name)
	assert.ElementsMatch(t, []uuid.UUID{owner.ID, member.ID}, current.MemberIDs())
}

func TestProjectService_UpdateRollsBackWhenMembersFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	p := f.store.SeedProject("Web", owner.ID, owner.ID, member.ID)
	f.store.FailMembers = errors.New("connection reset")

	name := "Renamed"
	members := []uuid.UUID{owner.ID}
	_, err := f.projects.Update(ctx, owner.ID, p.ID, UpdateProjectInput{Name: &name, MemberIDs: &members})
	assertKind(t, err, KindInternal)

	f.store.FailMembers = nil
	current, err := f.projects.Get(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Web", current.Name)
	assert.ElementsMatch(t, []uuid.UUID{owner.ID, member.ID}, current.MemberIDs())
}

func TestProjectService_UpdateDetailsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	p := f.store.SeedProject("Web", owner.ID, member.ID)

	desc := "the site"
	_, err := f.projects.UpdateDetails(ctx, member.ID, p.ID, nil, &desc)
	assertKind(t, err, KindForbidden)

	empty := ""
	updated, err := f.projects.UpdateDetails(ctx, owner.ID, p.ID, &empty, &desc)
	require.NoError(t, err)
	assert.Equal(t, "Web", updated.Name, "empty name is ignored")
	assert.Equal(t, "the site", updated.Description)
}

func TestProjectService_Invite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	newbie := f.store.SeedUser("Newbie")
	p := f.store.SeedProject("Web", owner.ID, member.ID)

	_, err := f.projects.Invite(ctx, member.ID, p.ID, InviteTarget{Email: newbie.Email})
	assertKind(t, err, KindForbidden)

	_, err = f.projects.Invite(ctx, owner.ID, p.ID, InviteTarget{})
	assertKind(t, err, KindValidation)

	_, err = f.projects.Invite(ctx, owner.ID, p.ID, InviteTarget{Email: "ghost@example.com"})
	assertKind(t, err, KindNotFound)

	updated, err := f.projects.Invite(ctx, owner.ID, p.ID, InviteTarget{Email: "NEWBIE@example.com"})
	require.NoError(t, err)
	assert.Contains(t, updated.MemberIDs(), newbie.ID)
	ev, ok := f.recorder.Last(events.ProjectMemberAdded)
	require.True(t, ok)
	assert.Equal(t, newbie.ID.String(), ev.Payload["member_id"])

	_, err = f.projects.Invite(ctx, owner.ID, p.ID, InviteTarget{UserID: &newbie.ID})
	assertKind(t, err, KindValidation)
	_, err = f.projects.Invite(ctx, owner.ID, p.ID, InviteTarget{UserID: &owner.ID})
	assertKind(t, err, KindValidation)
}

func TestProjectService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.SeedUser("Owner")
	member := f.store.SeedUser("Member")
	p := f.store.SeedProject("Web", owner.ID, member.ID)
	is := f.store.SeedIssue("Bug", p.ID, member.ID, model.StatusOpen, 0)
	c := f.store.SeedComment(is.ID, member.ID, nil, "hi")

	assertKind(t, f.projects.Delete(ctx, member.ID, p.ID), KindForbidden)
	require.NoError(t, f.projects.Delete(ctx, owner.ID, p.ID))

	_, err := f.projects.Get(ctx, owner.ID, p.ID)
	assertKind(t, err, KindNotFound)
	_, ok := f.store.Issue(is.ID)
	assert.False(t, ok)
	_, ok = f.store.Comment(c.ID)
	assert.False(t, ok)
}

func TestProjectService_StatsAndActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := f.store.SeedUser("Me")
	web := f.store.SeedProject("Web", me.ID)
	api := f.store.SeedProject("API", me.ID)
	f.store.SeedProject("Empty", me.ID)
	foreign := f.store.SeedProject("Foreign", uuid.New())
	f.store.SeedIssue("elsewhere", foreign.ID, uuid.New(), model.StatusOpen, 0)

	f.store.SeedIssue("w1", web.ID, me.ID, model.StatusInProgress, 0)
	f.store.SeedIssue("w2", web.ID, me.ID, model.StatusOpen, 0)
	f.store.SeedIssue("a1", api.ID, me.ID, model.StatusDone, 0)
	a2 := f.store.SeedIssue("a2", api.ID, me.ID, model.StatusDone, 1)

	past := time.Now().Add(-48 * time.Hour)
	w3 := f.store.SeedIssue("w3", web.ID, me.ID, model.StatusOpen, 1)
	_, err := f.issues.Update(ctx, me.ID, w3.ID, UpdateIssueInput{DueDate: &past, AssigneeID: &me.ID})
	require.NoError(t, err)
	_, err = f.issues.Update(ctx, me.ID, a2.ID, UpdateIssueInput{DueDate: &past})
	require.NoError(t, err)

	stats, err := f.projects.Stats(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectStats{
		TotalProjects:     3,
		CompletedProjects: 1,
		MyTasks:           1,
		Overdue:           1,
		InProgress:        1,
		TotalIssues:       5,
	}, *stats)

	activity, err := f.projects.Activity(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, activity, 5)
	assert.Equal(t, "a2", activity[0].Title)
	assert.Equal(t, "w3", activity[1].Title)
}
