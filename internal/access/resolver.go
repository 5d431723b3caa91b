package access

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

// ErrDenied is returned when the user is not a member of the owning project,
// or when the owning project cannot be found.
var ErrDenied = errors.New("access denied")

// Resolver loads a resource together with its owning project and applies the
// membership rule.
type Resolver struct {
	projects repository.ProjectStore
	issues   repository.IssueStore
	comments repository.CommentStore
}

func NewResolver(projects repository.ProjectStore, issues repository.IssueStore, comments repository.CommentStore) *Resolver {
	return &Resolver{projects: projects, issues: issues, comments: comments}
}

// Project returns repository.ErrProjectNotFound for an unknown id.
func (r *Resolver) Project(ctx context.Context, projectID, userID uuid.UUID) (*model.Project, error) {
	project, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, ErrDenied
	}
	return project, nil
}

// Issue returns repository.ErrIssueNotFound for an unknown id. An issue whose
// project is gone is denied.
func (r *Resolver) Issue(ctx context.Context, issueID, userID uuid.UUID) (*model.Issue, *model.Project, error) {
	issue, err := r.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	project, err := r.owningProject(ctx, issue.ProjectID, userID)
	if err != nil {
		return nil, nil, err
	}
	return issue, project, nil
}

// Comment resolves comment -> issue -> project. Any broken link is denied.
func (r *Resolver) Comment(ctx context.Context, commentID, userID uuid.UUID) (*model.Comment, *model.Project, error) {
	comment, err := r.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, nil, err
	}
	issue, err := r.issues.GetByID(ctx, comment.IssueID)
	if errors.Is(err, repository.ErrIssueNotFound) {
		return nil, nil, ErrDenied
	}
	if err != nil {
		return nil, nil, err
	}
	project, err := r.owningProject(ctx, issue.ProjectID, userID)
	if err != nil {
		return nil, nil, err
	}
	return comment, project, nil
}

func (r *Resolver) owningProject(ctx context.Context, projectID, userID uuid.UUID) (*model.Project, error) {
	project, err := r.Project(ctx, projectID, userID)
	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, ErrDenied
	}
	return project, err
}
