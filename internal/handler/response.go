package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"issuetracker/internal/middleware"
	"issuetracker/internal/model"
	"issuetracker/internal/service"
)

const detailsKey = "handler.errorDetails"

// ErrorDetails controls whether internal failures carry the underlying error
// in a "details" field. It is turned off in production.
func ErrorDetails(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(detailsKey, enabled)
		c.Next()
	}
}

var kindStatus = map[service.Kind]int{
	service.KindNotFound:     http.StatusNotFound,
	service.KindForbidden:    http.StatusForbidden,
	service.KindValidation:   http.StatusBadRequest,
	service.KindConflict:     http.StatusConflict,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindInternal:     http.StatusInternalServerError,
}

func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = service.Internal("Internal server error", err)
	}
	status, ok := kindStatus[svcErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": svcErr.Message}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		if svcErr.Err != nil && c.GetBool(detailsKey) {
			body["details"] = svcErr.Err.Error()
		}
	}
	c.JSON(status, body)
}

// respondBindError reports a malformed body or query, naming the failing
// fields when validation rejected them.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field() + ": " + fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return userID, ok
}

func pathID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// parseIDs converts request id strings, which binding has already checked.
func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Nullable tells an absent JSON field from an explicit null, which PATCH
// bodies use to clear a value.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	StartDate   *time.Time     `json:"startDate,omitempty"`
	EndDate     *time.Time     `json:"endDate,omitempty"`
	Lead        *UserResponse  `json:"lead,omitempty"`
	CreatedBy   UserResponse   `json:"createdBy"`
	Members     []UserResponse `json:"members"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type IssueResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        string        `json:"type"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	Order       int           `json:"order"`
	Project     ProjectRef    `json:"project"`
	CreatedBy   UserResponse  `json:"createdBy"`
	Assignee    *UserResponse `json:"assignee"`
	DueDate     *time.Time    `json:"dueDate"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type IssuePageResponse struct {
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Issues []IssueResponse `json:"issues"`
}

type CommentResponse struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Issue     string       `json:"issue"`
	Author    UserResponse `json:"author"`
	Parent    *string      `json:"parent"`
	CreatedAt time.Time    `json:"createdAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func newUserList(users []model.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = newUserResponse(&users[i])
	}
	return out
}

func newProjectResponse(p *model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Priority:    string(p.Priority),
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		CreatedBy:   newUserResponse(&p.Creator),
		Members:     newUserList(p.Members),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if resp.CreatedBy.ID == uuid.Nil.String() {
		resp.CreatedBy.ID = p.CreatedBy.String()
	}
	if p.Lead != nil {
		lead := newUserResponse(p.Lead)
		resp.Lead = &lead
	}
	return resp
}

func newProjectList(projects []model.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(projects))
	for i := range projects {
		out[i] = newProjectResponse(&projects[i])
	}
	return out
}

func newIssueResponse(is *model.Issue) IssueResponse {
	resp := IssueResponse{
		ID:          is.ID.String(),
		Title:       is.Title,
		Description: is.Description,
		Type:        string(is.Type),
		Status:      string(is.Status),
		Priority:    string(is.Priority),
		Order:       is.Order,
		Project:     ProjectRef{ID: is.ProjectID.String(), Name: is.Project.Name},
		CreatedBy:   newUserResponse(&is.Creator),
		DueDate:     is.DueDate,
		CreatedAt:   is.CreatedAt,
		UpdatedAt:   is.UpdatedAt,
	}
	resp.CreatedBy.ID = is.CreatedBy.String()
	if is.Assignee != nil {
		assignee := newUserResponse(is.Assignee)
		resp.Assignee = &assignee
	} else if is.AssigneeID != nil {
		resp.Assignee = &UserResponse{ID: is.AssigneeID.String()}
	}
	return resp
}

func newIssueList(issues []model.Issue) []IssueResponse {
	out := make([]IssueResponse, len(issues))
	for i := range issues {
		out[i] = newIssueResponse(&issues[i])
	}
	return out
}

func newCommentResponse(cm *model.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        cm.ID.String(),
		Content:   cm.Content,
		Issue:     cm.IssueID.String(),
		Author:    newUserResponse(&cm.Author),
		CreatedAt: cm.CreatedAt,
	}
	resp.Author.ID = cm.AuthorID.String()
	if cm.ParentID != nil {
		parent := cm.ParentID.String()
		resp.Parent = &parent
	}
	return resp
}

func newCommentList(comments []model.Comment) []CommentResponse {
	out := make([]CommentResponse, len(comments))
	for i := range comments {
		out[i] = newCommentResponse(&comments[i])
	}
	return out
}
