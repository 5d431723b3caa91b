package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"issuetracker/internal/access"
	"issuetracker/internal/events"
	"issuetracker/internal/model"
	"issuetracker/internal/ordering"
	"issuetracker/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type IssueService struct {
	issues   repository.IssueStore
	projects repository.ProjectStore
	guard    *access.Resolver
	engine   *ordering.Engine
	notifier
}

func NewIssueService(
	issues repository.IssueStore,
	projects repository.ProjectStore,
	guard *access.Resolver,
	engine *ordering.Engine,
	publisher events.Publisher,
	logger *slog.Logger,
) *IssueService {
	return &IssueService{
		issues:   issues,
		projects: projects,
		guard:    guard,
		engine:   engine,
		notifier: notifier{publisher: publisher, logger: logger.With("service", "issue")},
	}
}

type CreateIssueInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description string
	Type        *model.IssueType
	Status      *model.IssueStatus
	Priority    *model.Priority
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
	// Order places the issue inside its column. Nil appends.
	Order *int
}

// UpdateIssueInput leaves nil fields untouched. Status and Order go through
// the ordering engine like a reorder does.
type UpdateIssueInput struct {
	Title         *string
	Description   *string
	Type          *model.IssueType
	Priority      *model.Priority
	Status        *model.IssueStatus
	Order         *int
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

type ReorderInput struct {
	Status *model.IssueStatus
	Order  *int
}

// IssueQuery filters issue lists. Without ProjectID the list spans every
// project the caller belongs to and is ordered by recency, since orders of
// different projects are not comparable.
type IssueQuery struct {
	ProjectID  *uuid.UUID
	Status     *model.IssueStatus
	Priority   *model.Priority
	Type       *model.IssueType
	AssigneeID *uuid.UUID
	Unassigned bool
	Search     string
}

type PageQuery struct {
	Status   *model.IssueStatus
	Priority *model.Priority
	Search   string
	Page     int
	Limit    int
	// Sort is a field name, optionally prefixed with "-" for descending.
	Sort string
}

type IssuePage struct {
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
	Issues []model.Issue `json:"issues"`
}

func (s *IssueService) Create(ctx context.Context, userID uuid.UUID, in CreateIssueInput) (*model.Issue, error) {
	if in.ProjectID == uuid.Nil {
		return nil, Validation("project required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Validation("Title is required")
	}
	project, err := s.guard.Project(ctx, in.ProjectID, userID)
	if err != nil {
		return nil, translate(err, "Failed to load project")
	}
	if in.AssigneeID != nil && !access.IsAssignable(project, *in.AssigneeID) {
		return nil, Validation("Assignee must be a project member")
	}

	issue := &model.Issue{
		Title:       title,
		Description: in.Description,
		Type:        model.TypeBug,
		Status:      model.StatusOpen,
		Priority:    model.PriorityMedium,
		ProjectID:   project.ID,
		CreatedBy:   userID,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
	}
	if in.Type != nil {
		issue.Type = *in.Type
	}
	if in.Status != nil {
		issue.Status = *in.Status
	}
	if in.Priority != nil {
		issue.Priority = *in.Priority
	}

	if err := s.engine.Insert(ctx, issue, in.Order); err != nil {
		return nil, translate(err, "Failed to create issue")
	}

	s.publish(ctx, events.New(events.IssueCreated, userID).
		WithProject(project.ID).
		WithIssue(issue.ID).
		With("title", issue.Title))
	if issue.AssigneeID != nil {
		s.publishAssigned(ctx, userID, issue, project)
	}

	return s.reload(ctx, issue.ID)
}

func (s *IssueService) Get(ctx context.Context, userID, issueID uuid.UUID) (*model.Issue, error) {
	issue, _, err := s.guard.Issue(ctx, issueID, userID)
	if err != nil {
		return nil, translate(err, "Failed to load issue")
	}
	return issue, nil
}

// Update merges in into the issue. The assignee is validated before anything
// is written, so a rejected assignee leaves the issue untouched.
func (s *IssueService) Update(ctx context.Context, userID, issueID uuid.UUID, in UpdateIssueInput) (*model.Issue, error) {
	issue, project, err := s.guard.Issue(ctx, issueID, userID)
	if err != nil {
		return nil, translate(err, "Failed to load issue")
	}
	if in.AssigneeID != nil && !access.IsAssignable(project, *in.AssigneeID) {
		return nil, Validation("Assignee must be a project member")
	}
	if in.Order != nil && *in.Order < 0 {
		return nil, Validation("Order must be a non-negative integer")
	}

	previousAssignee := issue.AssigneeID
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, Validation("Title is required")
		}
		issue.Title = title
	}
	if in.Description != nil {
		issue.Description = *in.Description
	}
	if in.Type != nil {
		issue.Type = *in.Type
	}
	if in.Priority != nil {
		issue.Priority = *in.Priority
	}
	switch {
	case in.ClearAssignee:
		issue.AssigneeID = nil
	case in.AssigneeID != nil:
		issue.AssigneeID = in.AssigneeID
	}
	switch {
	case in.ClearDueDate:
		issue.DueDate = nil
	case in.DueDate != nil:
		issue.DueDate = in.DueDate
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, translate(err, "Failed to update issue")
	}
	s.publish(ctx, events.New(events.IssueUpdated, userID).
		WithProject(project.ID).
		WithIssue(issue.ID).
		With("title", issue.Title))
	if issue.AssigneeID != nil && (previousAssignee == nil || *previousAssignee != *issue.AssigneeID) {
		s.publishAssigned(ctx, userID, issue, project)
	}

	// An unchanged status with no order is a plain edit and keeps the position.
	if in.Order != nil || (in.Status != nil && *in.Status != issue.Status) {
		if err := s.move(ctx, userID, issue.ID, ordering.MoveRequest{Status: in.Status, Order: in.Order}); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, issue.ID)
}

// Reorder moves the issue within or across the columns of its project.
func (s *IssueService) Reorder(ctx context.Context, userID, issueID uuid.UUID, in ReorderInput) (*model.Issue, error) {
	if _, _, err := s.guard.Issue(ctx, issueID, userID); err != nil {
		return nil, translate(err, "Failed to load issue")
	}
	if err := s.move(ctx, userID, issueID, ordering.MoveRequest{Status: in.Status, Order: in.Order}); err != nil {
		return nil, err
	}
	return s.reload(ctx, issueID)
}

func (s *IssueService) move(ctx context.Context, userID, issueID uuid.UUID, req ordering.MoveRequest) error {
	move, err := s.engine.Move(ctx, issueID, req)
	if err != nil {
		return translate(err, "Failed to reorder issue")
	}
	if move.Changed() {
		s.publish(ctx, events.New(events.IssueMoved, userID).
			WithProject(move.ProjectID).
			WithIssue(issueID).
			With("from_status", string(move.From.Status)).
			With("from_order", strconv.Itoa(move.From.Order)).
			With("to_status", string(move.To.Status)).
			With("to_order", strconv.Itoa(move.To.Order)))
	}
	return nil
}

// Delete is allowed to the issue's creator and the project owner. The column
// keeps the gap the issue leaves.
func (s *IssueService) Delete(ctx context.Context, userID, issueID uuid.UUID) error {
	issue, project, err := s.guard.Issue(ctx, issueID, userID)
	if err != nil {
		return translate(err, "Failed to load issue")
	}
	if !access.CanDeleteIssue(project, issue, userID) {
		return Forbidden("Only the ticket creator or project owner can delete")
	}
	if err := s.issues.Delete(ctx, issueID); err != nil {
		return translate(err, "Failed to delete issue")
	}
	s.publish(ctx, events.New(events.IssueDeleted, userID).
		WithProject(project.ID).
		WithIssue(issueID).
		With("title", issue.Title))
	return nil
}

func (s *IssueService) List(ctx context.Context, userID uuid.UUID, q IssueQuery) ([]model.Issue, error) {
	filter := repository.IssueFilter{
		Status:     q.Status,
		Priority:   q.Priority,
		Type:       q.Type,
		AssigneeID: q.AssigneeID,
		Unassigned: q.Unassigned,
		Search:     q.Search,
	}

	if q.ProjectID != nil {
		if _, err := s.guard.Project(ctx, *q.ProjectID, userID); err != nil {
			return nil, translate(err, "Failed to load project")
		}
		filter.ProjectID = q.ProjectID
		filter.Sort = repository.BoardSort
	} else {
		ids, err := s.projects.IDsForUser(ctx, userID)
		if err != nil {
			return nil, Internal("Failed to list issues", err)
		}
		filter.ProjectIDs = ids
		filter.Sort = repository.RecentSort
	}

	issues, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, Internal("Failed to list issues", err)
	}
	return issues, nil
}

func (s *IssueService) Assigned(ctx context.Context, userID uuid.UUID, q PageQuery) (*IssuePage, error) {
	return s.page(ctx, repository.IssueFilter{AssigneeID: &userID}, q)
}

func (s *IssueService) Created(ctx context.Context, userID uuid.UUID, q PageQuery) (*IssuePage, error) {
	return s.page(ctx, repository.IssueFilter{CreatedBy: &userID}, q)
}

func (s *IssueService) page(ctx context.Context, filter repository.IssueFilter, q PageQuery) (*IssuePage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	filter.Status = q.Status
	filter.Priority = q.Priority
	filter.Search = q.Search

	total, err := s.issues.Count(ctx, filter)
	if err != nil {
		return nil, Internal("Failed to list issues", err)
	}

	filter.Sort = ParseSort(q.Sort)
	filter.Offset = (page - 1) * limit
	filter.Limit = limit
	issues, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, Internal("Failed to list issues", err)
	}
	return &IssuePage{Total: total, Page: page, Limit: limit, Issues: issues}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

var sortFields = map[string]string{
	"updatedAt": repository.SortByUpdatedAt,
	"createdAt": repository.SortByCreatedAt,
	"priority":  repository.SortByPriority,
	"status":    repository.SortByStatus,
	"title":     repository.SortByTitle,
	"dueDate":   repository.SortByDueDate,
	"order":     repository.SortByOrder,
}

// ParseSort reads "-updatedAt" style keys. Unknown keys fall back to most
// recently updated first.
func ParseSort(key string) []repository.SortField {
	key = strings.TrimSpace(key)
	desc := strings.HasPrefix(key, "-")
	field, ok := sortFields[strings.TrimPrefix(key, "-")]
	if !ok {
		return repository.RecentSort
	}
	return []repository.SortField{{Field: field, Desc: desc}}
}

func (s *IssueService) publishAssigned(ctx context.Context, userID uuid.UUID, issue *model.Issue, project *model.Project) {
	s.publish(ctx, events.New(events.IssueAssigned, userID).
		WithProject(project.ID).
		WithIssue(issue.ID).
		With("assignee_id", issue.AssigneeID.String()).
		With("title", issue.Title).
		With("project_name", project.Name))
}

func (s *IssueService) reload(ctx context.Context, issueID uuid.UUID) (*model.Issue, error) {
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, translate(err, "Failed to load issue")
	}
	return issue, nil
}
