package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"issuetracker/internal/model"
	"issuetracker/internal/service"
)

type ProjectManager interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Project, error)
	Create(ctx context.Context, userID uuid.UUID, in service.CreateProjectInput) (*model.Project, error)
	Get(ctx context.Context, userID, projectID uuid.UUID) (*model.Project, error)
	Update(ctx context.Context, userID, projectID uuid.UUID, in service.UpdateProjectInput) (*model.Project, error)
	UpdateDetails(ctx context.Context, userID, projectID uuid.UUID, name, description *string) (*model.Project, error)
	Invite(ctx context.Context, userID, projectID uuid.UUID, target service.InviteTarget) (*model.Project, error)
	Delete(ctx context.Context, userID, projectID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (*service.ProjectStats, error)
	Activity(ctx context.Context, userID uuid.UUID) ([]model.Issue, error)
}

type ProjectHandler struct {
	projects ProjectManager
}

func NewProjectHandler(projects ProjectManager) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Status      *string    `json:"status" binding:"omitempty,project_status"`
	Priority    *string    `json:"priority" binding:"omitempty,priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Lead        *string    `json:"lead" binding:"omitempty,uuid"`
	Members     []string   `json:"members" binding:"omitempty,dive,uuid"`
}

// UpdateProjectRequest is a partial update; absent fields are kept.
type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" binding:"omitempty,project_status"`
	Priority    *string    `json:"priority" binding:"omitempty,priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Lead        *string    `json:"lead" binding:"omitempty,uuid"`
	Members     *[]string  `json:"members" binding:"omitempty,dive,uuid"`
}

type ProjectDetailsRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// InviteRequest names the invitee by id or by email.
type InviteRequest struct {
	UserID string `json:"userId" binding:"omitempty,uuid"`
	Email  string `json:"email"`
}

func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projects, err := h.projects.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProjectList(projects))
}

// Create godoc
// @Summary   Create a project owned by the caller
// @Tags      Projects
// @Security  BearerAuth
// @Accept    json
// @Produce   json
// @Param     body body CreateProjectRequest true "Project"
// @Success   201 {object} ProjectResponse
// @Failure   400 {object} map[string]string
// @Router    /api/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      projectStatus(req.Status),
		Priority:    priority(req.Priority),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	var err error
	if in.LeadID, err = parseOptionalID(req.Lead); err != nil {
		respondBindError(c, err)
		return
	}
	if in.MemberIDs, err = parseIDs(req.Members); err != nil {
		respondBindError(c, err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newProjectResponse(project))
}

func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      projectStatus(req.Status),
		Priority:    priority(req.Priority),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	var err error
	if in.LeadID, err = parseOptionalID(req.Lead); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Members != nil {
		members, err := parseIDs(*req.Members)
		if err != nil {
			respondBindError(c, err)
			return
		}
		in.MemberIDs = &members
	}

	project, err := h.projects.Update(c.Request.Context(), userID, projectID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *ProjectHandler) UpdateDetails(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	var req ProjectDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	project, err := h.projects.UpdateDetails(c.Request.Context(), userID, projectID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *ProjectHandler) Invite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	target := service.InviteTarget{Email: req.Email}
	if req.UserID != "" {
		id := uuid.MustParse(req.UserID)
		target.UserID = &id
	}
	project, err := h.projects.Invite(c.Request.Context(), userID, projectID, target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProjectResponse(project))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), userID, projectID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted"})
}

func (h *ProjectHandler) Stats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := h.projects.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ProjectHandler) Activity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	issues, err := h.projects.Activity(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIssueList(issues))
}

func projectStatus(raw *string) *model.ProjectStatus {
	if raw == nil {
		return nil
	}
	s, _ := model.ParseProjectStatus(*raw)
	return &s
}
