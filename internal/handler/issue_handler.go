package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"issuetracker/internal/model"
	"issuetracker/internal/service"
)

type IssueManager interface {
	Create(ctx context.Context, userID uuid.UUID, in service.CreateIssueInput) (*model.Issue, error)
	Get(ctx context.Context, userID, issueID uuid.UUID) (*model.Issue, error)
	Update(ctx context.Context, userID, issueID uuid.UUID, in service.UpdateIssueInput) (*model.Issue, error)
	Reorder(ctx context.Context, userID, issueID uuid.UUID, in service.ReorderInput) (*model.Issue, error)
	Delete(ctx context.Context, userID, issueID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, q service.IssueQuery) ([]model.Issue, error)
	Assigned(ctx context.Context, userID uuid.UUID, q service.PageQuery) (*service.IssuePage, error)
	Created(ctx context.Context, userID uuid.UUID, q service.PageQuery) (*service.IssuePage, error)
}

type IssueHandler struct {
	issues IssueManager
}

func NewIssueHandler(issues IssueManager) *IssueHandler {
	return &IssueHandler{issues: issues}
}

type CreateIssueRequest struct {
	Project     string     `json:"project" binding:"required,uuid"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Type        *string    `json:"type" binding:"omitempty,issue_type"`
	Status      *string    `json:"status" binding:"omitempty,issue_status"`
	Priority    *string    `json:"priority" binding:"omitempty,priority"`
	Assignee    *string    `json:"assignee" binding:"omitempty,uuid"`
	DueDate     *time.Time `json:"dueDate"`
	Order       *int       `json:"order" binding:"omitempty,min=0"`
}

// UpdateIssueRequest is a partial update. Assignee and dueDate may be sent
// as null to clear them.
type UpdateIssueRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Type        *string             `json:"type" binding:"omitempty,issue_type"`
	Status      *string             `json:"status" binding:"omitempty,issue_status"`
	Priority    *string             `json:"priority" binding:"omitempty,priority"`
	Order       *int                `json:"order" binding:"omitempty,min=0"`
	Assignee    Nullable[string]    `json:"assignee"`
	DueDate     Nullable[time.Time] `json:"dueDate"`
}

type ReorderRequest struct {
	Status *string `json:"status" binding:"omitempty,issue_status"`
	Order  *int    `json:"order" binding:"omitempty,min=0"`
}

// Create godoc
// @Summary   Create an issue at the end of its column, or at order
// @Tags      Issues
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     body body CreateIssueRequest true "Issue"
// @Success   201 {object} IssueResponse
// @Failure   400,403,404,409 {object} map[string]string
// @Router    /api/issues [post]
func (h *IssueHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.CreateIssueInput{
		ProjectID:   uuid.MustParse(req.Project),
		Title:       req.Title,
		Description: req.Description,
		Type:        issueType(req.Type),
		Status:      issueStatus(req.Status),
		Priority:    priority(req.Priority),
		DueDate:     req.DueDate,
		Order:       req.Order,
	}
	var err error
	if in.AssigneeID, err = parseOptionalID(req.Assignee); err != nil {
		respondBindError(c, err)
		return
	}

	issue, err := h.issues.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newIssueResponse(issue))
}

func (h *IssueHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	issueID, ok := pathID(c, "id", "issue")
	if !ok {
		return
	}
	issue, err := h.issues.Get(c.Request.Context(), userID, issueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIssueResponse(issue))
}

func (h *IssueHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	issueID, ok := pathID(c, "id", "issue")
	if !ok {
		return
	}
	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.UpdateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        issueType(req.Type),
		Status:      issueStatus(req.Status),
		Priority:    priority(req.Priority),
		Order:       req.Order,
	}
	if req.Assignee.Set {
		assignee, err := parseOptionalID(req.Assignee.Value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		in.AssigneeID = assignee
		in.ClearAssignee = assignee == nil
	}
	if req.DueDate.Set {
		in.DueDate = req.DueDate.Value
		in.ClearDueDate = req.DueDate.Value == nil
	}

	issue, err := h.issues.Update(c.Request.Context(), userID, issueID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIssueResponse(issue))
}

// Reorder godoc
// @Summary      Move an issue within its column or to another status column
// @Description  Omitting order appends to the destination column. Siblings are shifted so both columns stay dense.
// @Tags         Issues
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path string         true "Issue ID"
// @Param        body body ReorderRequest true "Target"
// @Success      200 {object} IssueResponse
// @Failure      400,403,404,409 {object} map[string]string
// @Router       /api/issues/{id}/reorder [patch]
func (h *IssueHandler) Reorder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	issueID, ok := pathID(c, "id", "issue")
	if !ok {
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	issue, err := h.issues.Reorder(c.Request.Context(), userID, issueID, service.ReorderInput{
		Status: issueStatus(req.Status),
		Order:  req.Order,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIssueResponse(issue))
}

func (h *IssueHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	issueID, ok := pathID(c, "id", "issue")
	if !ok {
		return
	}
	if err := h.issues.Delete(c.Request.Context(), userID, issueID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Issue deleted"})
}

// List serves one project's board when project (or projectId) is given,
// otherwise every issue the caller can see, most recently updated first.
func (h *IssueHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var q service.IssueQuery
	if raw := firstQuery(c, "project", "projectId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID format"})
			return
		}
		q.ProjectID = &id
	}
	if !parseEnumQueries(c, &q.Status, &q.Priority) {
		return
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := model.ParseIssueType(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type"})
			return
		}
		q.Type = &t
	}
	switch raw := c.Query("assignee"); raw {
	case "":
	case "unassigned":
		q.Unassigned = true
	default:
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		q.AssigneeID = &id
	}
	q.Search = c.Query("search")

	issues, err := h.issues.List(c.Request.Context(), userID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIssueList(issues))
}

func (h *IssueHandler) Assigned(c *gin.Context) {
	h.page(c, h.issues.Assigned)
}

func (h *IssueHandler) Created(c *gin.Context) {
	h.page(c, h.issues.Created)
}

type pageFunc func(ctx context.Context, userID uuid.UUID, q service.PageQuery) (*service.IssuePage, error)

func (h *IssueHandler) page(c *gin.Context, fetch pageFunc) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	q := service.PageQuery{
		Search: c.Query("search"),
		Sort:   c.DefaultQuery("sort", "-updatedAt"),
	}
	if !parseEnumQueries(c, &q.Status, &q.Priority) {
		return
	}
	// bad numbers fall back to the defaults
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.Limit, _ = strconv.Atoi(c.Query("limit"))

	page, err := fetch(c.Request.Context(), userID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, IssuePageResponse{
		Total:  page.Total,
		Page:   page.Page,
		Limit:  page.Limit,
		Issues: newIssueList(page.Issues),
	})
}

func parseEnumQueries(c *gin.Context, status **model.IssueStatus, prio **model.Priority) bool {
	if raw := c.Query("status"); raw != "" {
		s, ok := model.ParseIssueStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return false
		}
		*status = &s
	}
	if raw := c.Query("priority"); raw != "" {
		p, ok := model.ParsePriority(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return false
		}
		*prio = &p
	}
	return true
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}

// The helpers below run after binding validated the value.

func issueStatus(raw *string) *model.IssueStatus {
	if raw == nil {
		return nil
	}
	s, _ := model.ParseIssueStatus(*raw)
	return &s
}

func issueType(raw *string) *model.IssueType {
	if raw == nil {
		return nil
	}
	t, _ := model.ParseIssueType(*raw)
	return &t
}

func priority(raw *string) *model.Priority {
	if raw == nil {
		return nil
	}
	p, _ := model.ParsePriority(*raw)
	return &p
}
