package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"issuetracker/internal/model"
	"issuetracker/internal/service"
)

type CommentManager interface {
	ListForIssue(ctx context.Context, userID, issueID uuid.UUID) ([]model.Comment, error)
	Create(ctx context.Context, userID uuid.UUID, in service.CreateCommentInput) (*model.Comment, error)
	Delete(ctx context.Context, userID, commentID uuid.UUID) error
}

type CommentHandler struct {
	comments CommentManager
}

func NewCommentHandler(comments CommentManager) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type CreateCommentRequest struct {
	Issue   string  `json:"issue" binding:"required,uuid"`
	Content string  `json:"content" binding:"required"`
	Parent  *string `json:"parent" binding:"omitempty,uuid"`
}

// IssueCommentRequest is the body of POST /issues/:id/comments, where the
// issue comes from the path.
type IssueCommentRequest struct {
	Content string  `json:"content" binding:"required"`
	Parent  *string `json:"parent" binding:"omitempty,uuid"`
}

// ListForIssue serves both /comments/issue/:issueId and /issues/:id/comments.
func (h *CommentHandler) ListForIssue(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		issueID, ok := pathID(c, param, "issue")
		if !ok {
			return
		}
		comments, err := h.comments.ListForIssue(c.Request.Context(), userID, issueID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newCommentList(comments))
	}
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "issue and content required"})
		return
	}
	h.create(c, uuid.MustParse(req.Issue), req.Content, req.Parent)
}

func (h *CommentHandler) CreateForIssue(c *gin.Context) {
	issueID, ok := pathID(c, "id", "issue")
	if !ok {
		return
	}
	var req IssueCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content required"})
		return
	}
	h.create(c, issueID, req.Content, req.Parent)
}

func (h *CommentHandler) create(c *gin.Context, issueID uuid.UUID, content string, parent *string) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	parentID, err := parseOptionalID(parent)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent ID format"})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), userID, service.CreateCommentInput{
		IssueID:  issueID,
		Content:  content,
		ParentID: parentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCommentResponse(comment))
}

// Delete removes the comment together with its direct replies.
func (h *CommentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id", "comment")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), userID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted"})
}
