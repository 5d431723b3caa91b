package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"issuetracker/internal/model"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]model.User, error)
	Search(ctx context.Context, query string, limit int) ([]model.User, error)
}

type ProjectStore interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error)
	IDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Update(ctx context.Context, project *model.Project) error
	ReplaceMembers(ctx context.Context, projectID uuid.UUID, memberIDs []uuid.UUID) error
	AddMember(ctx context.Context, projectID, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(ctx context.Context, fn func(tx ProjectStore) error) error
}

type IssueStore interface {
	Create(ctx context.Context, issue *model.Issue) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Issue, error)
	// LockByID reads the issue and holds a row lock until the surrounding
	// transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Issue, error)
	// Update writes the non-positional fields. Status and order only change
	// through SetPosition.
	Update(ctx context.Context, issue *model.Issue) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter IssueFilter) ([]model.Issue, error)
	Count(ctx context.Context, filter IssueFilter) (int64, error)
	// MaxOrder returns the highest order in the column, or -1 if it is empty.
	MaxOrder(ctx context.Context, projectID uuid.UUID, status model.IssueStatus) (int, error)
	ShiftOrders(ctx context.Context, shift OrderShift) (int64, error)
	SetPosition(ctx context.Context, id uuid.UUID, status model.IssueStatus, order int) error
	WithTx(ctx context.Context, fn func(tx IssueStore) error) error
}

type CommentStore interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	ListByIssue(ctx context.Context, issueID uuid.UUID) ([]model.Comment, error)
	// DeleteWithReplies removes the comment and its direct replies only.
	DeleteWithReplies(ctx context.Context, id uuid.UUID) (int64, error)
}
