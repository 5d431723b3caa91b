package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"issuetracker/internal/access"
	"issuetracker/internal/events"
	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

const activityLimit = 10

type ProjectService struct {
	projects repository.ProjectStore
	issues   repository.IssueStore
	users    repository.UserStore
	guard    *access.Resolver
	notifier
	now func() time.Time
}

func NewProjectService(
	projects repository.ProjectStore,
	issues repository.IssueStore,
	users repository.UserStore,
	guard *access.Resolver,
	publisher events.Publisher,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects: projects,
		issues:   issues,
		users:    users,
		guard:    guard,
		notifier: notifier{publisher: publisher, logger: logger.With("service", "project")},
		now:      time.Now,
	}
}

type CreateProjectInput struct {
	Name        string
	Description string
	Status      *model.ProjectStatus
	Priority    *model.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	LeadID      *uuid.UUID
	MemberIDs   []uuid.UUID
}

// UpdateProjectInput leaves nil fields untouched. MemberIDs replaces the
// whole member set and is reserved to the owner.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
	Priority    *model.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	LeadID      *uuid.UUID
	MemberIDs   *[]uuid.UUID
}

// InviteTarget names the user to add, by id or by email. Exactly one is set.
type InviteTarget struct {
	UserID *uuid.UUID
	Email  string
}

type ProjectStats struct {
	TotalProjects     int `json:"totalProjects"`
	CompletedProjects int `json:"completedProjects"`
	MyTasks           int `json:"myTasks"`
	Overdue           int `json:"overdue"`
	InProgress        int `json:"inProgress"`
	TotalIssues       int `json:"totalIssues"`
}

func (s *ProjectService) List(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	projects, err := s.projects.ListForUser(ctx, userID)
	if err != nil {
		return nil, Internal("Failed to list projects", err)
	}
	return projects, nil
}

// Create makes userID the owner and lists them as the first member.
func (s *ProjectService) Create(ctx context.Context, userID uuid.UUID, in CreateProjectInput) (*model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Validation("Project name is required")
	}
	memberIDs := uniqueIDs(append([]uuid.UUID{userID}, in.MemberIDs...))
	if err := s.ensureUsers(ctx, memberIDs[1:]...); err != nil {
		return nil, err
	}
	if in.LeadID != nil {
		if err := s.ensureUsers(ctx, *in.LeadID); err != nil {
			return nil, err
		}
	}

	project := &model.Project{
		Name:        name,
		Description: in.Description,
		Status:      model.ProjectPlanning,
		Priority:    model.PriorityMedium,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		LeadID:      in.LeadID,
		CreatedBy:   userID,
	}
	if in.Status != nil {
		project.Status = *in.Status
	}
	if in.Priority != nil {
		project.Priority = *in.Priority
	}
	for _, id := range memberIDs {
		project.Members = append(project.Members, model.User{ID: id})
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, Internal("Failed to create project", err)
	}
	s.publish(ctx, events.New(events.ProjectCreated, userID).
		WithProject(project.ID).
		With("project_name", project.Name))

	return s.reload(ctx, project.ID)
}

func (s *ProjectService) Get(ctx context.Context, userID, projectID uuid.UUID) (*model.Project, error) {
	project, err := s.guard.Project(ctx, projectID, userID)
	if err != nil {
		return nil, translate(err, "Failed to load project")
	}
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, userID, projectID uuid.UUID, in UpdateProjectInput) (*model.Project, error) {
	project, err := s.guard.Project(ctx, projectID, userID)
	if err != nil {
		return nil, translate(err, "Failed to load project")
	}
	if in.MemberIDs != nil && !access.IsOwner(project, userID) {
		return nil, Forbidden("Only owner can manage members")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, Validation("Project name is required")
		}
		project.Name = name
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.Status != nil {
		project.Status = *in.Status
	}
	if in.Priority != nil {
		project.Priority = *in.Priority
	}
	if in.StartDate != nil {
		project.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		project.EndDate = in.EndDate
	}
	if in.LeadID != nil {
		if err := s.ensureUsers(ctx, *in.LeadID); err != nil {
			return nil, err
		}
		project.LeadID = in.LeadID
	}
	var members []uuid.UUID
	if in.MemberIDs != nil {
		members = uniqueIDs(*in.MemberIDs)
		if err := s.ensureUsers(ctx, members...); err != nil {
			return nil, err
		}
	}

	err = s.projects.WithTx(ctx, func(tx repository.ProjectStore) error {
		if err := tx.Update(ctx, project); err != nil {
			return translate(err, "Failed to update project")
		}
		if in.MemberIDs != nil {
			if err := tx.ReplaceMembers(ctx, projectID, members); err != nil {
				return translate(err, "Failed to update members")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, projectID)
}

// UpdateDetails changes name and description only, and only for the owner.
func (s *ProjectService) UpdateDetails(ctx context.Context, userID, projectID uuid.UUID, name, description *string) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, translate(err, "Failed to load project")
	}
	if !access.IsOwner(project, userID) {
		return nil, Forbidden("Only owner can update project")
	}
	if name != nil && strings.TrimSpace(*name) != "" {
		project.Name = strings.TrimSpace(*name)
	}
	if description != nil {
		project.Description = *description
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, translate(err, "Failed to update project")
	}
	return s.reload(ctx, projectID)
}

func (s *ProjectService) Invite(ctx context.Context, userID, projectID uuid.UUID, target InviteTarget) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, translate(err, "Failed to load project")
	}
	if !access.IsOwner(project, userID) {
		return nil, Forbidden("Only owner can invite")
	}

	var invitee *model.User
	switch {
	case strings.TrimSpace(target.Email) != "":
		invitee, err = s.users.FindByEmail(ctx, target.Email)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NotFound("User with this email not found")
		}
	case target.UserID != nil:
		invitee, err = s.users.GetByID(ctx, *target.UserID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NotFound("User not found")
		}
	default:
		return nil, Validation("userId or email required")
	}
	if err != nil {
		return nil, Internal("Failed to load user", err)
	}

	if access.IsMember(project, invitee.ID) {
		return nil, Validation("User already in project")
	}
	if err := s.projects.AddMember(ctx, projectID, invitee.ID); err != nil {
		return nil, translate(err, "Failed to add member")
	}

	s.publish(ctx, events.New(events.ProjectMemberAdded, userID).
		WithProject(projectID).
		With("member_id", invitee.ID.String()).
		With("project_name", project.Name))

	return s.reload(ctx, projectID)
}

// Delete removes the project with all its issues and their comments.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return translate(err, "Failed to load project")
	}
	if !access.IsOwner(project, userID) {
		return Forbidden("Only owner can delete project")
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return translate(err, "Failed to delete project")
	}
	s.publish(ctx, events.New(events.ProjectDeleted, userID).
		WithProject(projectID).
		With("project_name", project.Name))
	return nil
}

// Stats summarises every project the user can see. A project counts as
// completed once it has issues and all of them are done.
func (s *ProjectService) Stats(ctx context.Context, userID uuid.UUID) (*ProjectStats, error) {
	ids, err := s.projects.IDsForUser(ctx, userID)
	if err != nil {
		return nil, Internal("Failed to fetch statistics", err)
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{ProjectIDs: ids})
	if err != nil {
		return nil, Internal("Failed to fetch statistics", err)
	}

	stats := &ProjectStats{TotalProjects: len(ids), TotalIssues: len(issues)}
	now := s.now()
	open := make(map[uuid.UUID]bool, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, is := range issues {
		seen[is.ProjectID] = true
		if is.Status != model.StatusDone {
			open[is.ProjectID] = true
		}
		if is.AssigneeID != nil && *is.AssigneeID == userID {
			stats.MyTasks++
		}
		if is.DueDate != nil && is.DueDate.Before(now) && is.Status != model.StatusDone {
			stats.Overdue++
		}
		if is.Status == model.StatusInProgress {
			stats.InProgress++
		}
	}
	for id := range seen {
		if !open[id] {
			stats.CompletedProjects++
		}
	}
	return stats, nil
}

// Activity returns the most recently updated issues across the user's projects.
func (s *ProjectService) Activity(ctx context.Context, userID uuid.UUID) ([]model.Issue, error) {
	ids, err := s.projects.IDsForUser(ctx, userID)
	if err != nil {
		return nil, Internal("Failed to fetch activity", err)
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{
		ProjectIDs: ids,
		Sort:       repository.RecentSort,
		Limit:      activityLimit,
	})
	if err != nil {
		return nil, Internal("Failed to fetch activity", err)
	}
	return issues, nil
}

func (s *ProjectService) reload(ctx context.Context, projectID uuid.UUID) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, translate(err, "Failed to load project")
	}
	return project, nil
}

// ensureUsers fails with Validation when any id is not a registered user.
func (s *ProjectService) ensureUsers(ctx context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		_, err := s.users.GetByID(ctx, id)
		if errors.Is(err, repository.ErrUserNotFound) {
			return Validation("Unknown user " + id.String())
		}
		if err != nil {
			return Internal("Failed to load user", err)
		}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
