package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"issuetracker/internal/access"
	"issuetracker/internal/events"
	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

type CommentService struct {
	comments repository.CommentStore
	guard    *access.Resolver
	notifier
}

func NewCommentService(comments repository.CommentStore, guard *access.Resolver, publisher events.Publisher, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		guard:    guard,
		notifier: notifier{publisher: publisher, logger: logger.With("service", "comment")},
	}
}

type CreateCommentInput struct {
	IssueID  uuid.UUID
	Content  string
	ParentID *uuid.UUID
}

// ListForIssue returns the issue's comments oldest first.
func (s *CommentService) ListForIssue(ctx context.Context, userID, issueID uuid.UUID) ([]model.Comment, error) {
	if _, _, err := s.guard.Issue(ctx, issueID, userID); err != nil {
		return nil, translate(err, "Failed to load issue")
	}
	comments, err := s.comments.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, Internal("Failed to list comments", err)
	}
	return comments, nil
}

// Create threads the comment under ParentID when set. Replies are one level
// deep in practice, but a parent must belong to the same issue.
func (s *CommentService) Create(ctx context.Context, userID uuid.UUID, in CreateCommentInput) (*model.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if in.IssueID == uuid.Nil || content == "" {
		return nil, Validation("issue and content required")
	}
	issue, _, err := s.guard.Issue(ctx, in.IssueID, userID)
	if err != nil {
		return nil, translate(err, "Failed to load issue")
	}
	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrCommentNotFound) {
				return nil, Validation("Parent comment not found")
			}
			return nil, Internal("Failed to load parent comment", err)
		}
		if parent.IssueID != issue.ID {
			return nil, Validation("Parent comment belongs to another issue")
		}
	}

	comment := &model.Comment{
		Content:  content,
		IssueID:  issue.ID,
		AuthorID: userID,
		ParentID: in.ParentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, Internal("Failed to create comment", err)
	}

	s.publish(ctx, events.New(events.CommentCreated, userID).
		WithProject(issue.ProjectID).
		WithIssue(issue.ID))

	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, translate(err, "Failed to load comment")
	}
	return created, nil
}

// Delete removes the comment and its direct replies. Only the author may
// delete, and only while still a member of the project.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, project, err := s.guard.Comment(ctx, commentID, userID)
	if err != nil {
		return translate(err, "Failed to load comment")
	}
	if !access.CanDeleteComment(comment, userID) {
		return Forbidden("Can only delete your own comment")
	}
	removed, err := s.comments.DeleteWithReplies(ctx, commentID)
	if err != nil {
		return Internal("Failed to delete comment", err)
	}

	s.publish(ctx, events.New(events.CommentDeleted, userID).
		WithProject(project.ID).
		WithIssue(comment.IssueID).
		With("removed", strconv.FormatInt(removed, 10)))
	return nil
}
