package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"issuetracker/internal/auth"
	"issuetracker/internal/config"
	"issuetracker/internal/handler"
	"issuetracker/internal/middleware"
)

type Handlers struct {
	Users    *handler.UserHandler
	Projects *handler.ProjectHandler
	Issues   *handler.IssueHandler
	Comments *handler.CommentHandler
	Health   *handler.HealthHandler
}

type RouterOptions struct {
	Issuer        *auth.TokenIssuer
	Logger        *slog.Logger
	RateLimit     config.RateLimitConfig
	Redis         *redis.Client
	CORSOrigin    string
	ExposeDetails bool
}

// NewRouter mounts the API under /api. Everything except auth entry points
// and the health check requires a bearer token.
func NewRouter(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(opts.Logger),
		middleware.CORS(opts.CORSOrigin),
		handler.ErrorDetails(opts.ExposeDetails),
	)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	api.GET("/health", h.Health.Health)

	limit := middleware.RateLimit(opts.RateLimit, opts.Redis, opts.Logger)

	public := api.Group("/auth", limit)
	{
		public.POST("/register", h.Users.Register)
		public.POST("/login", h.Users.Login)
		public.POST("/forgot-password", h.Users.ForgotPassword)
		public.POST("/reset-password", h.Users.ResetPassword)
	}

	authorized := api.Group("")
	authorized.Use(middleware.JWTAuthMiddleware(opts.Issuer), limit)
	{
		authorized.GET("/auth/me", h.Users.Me)
		authorized.PATCH("/auth/profile", h.Users.UpdateProfile)
		authorized.PATCH("/auth/change-password", h.Users.ChangePassword)

		authorized.GET("/users", h.Users.List)
		authorized.GET("/users/search", h.Users.Search)

		authorized.GET("/projects", h.Projects.List)
		authorized.POST("/projects", h.Projects.Create)
		authorized.GET("/projects/stats", h.Projects.Stats)
		authorized.GET("/projects/activity", h.Projects.Activity)
		authorized.GET("/projects/:id", h.Projects.Get)
		authorized.PATCH("/projects/:id", h.Projects.Update)
		authorized.PUT("/projects/:id", h.Projects.UpdateDetails)
		authorized.DELETE("/projects/:id", h.Projects.Delete)
		authorized.POST("/projects/:id/invite", h.Projects.Invite)

		authorized.GET("/issues", h.Issues.List)
		authorized.POST("/issues", h.Issues.Create)
		authorized.GET("/issues/assigned", h.Issues.Assigned)
		authorized.GET("/issues/created", h.Issues.Created)
		authorized.GET("/issues/:id", h.Issues.Get)
		authorized.PUT("/issues/:id", h.Issues.Update)
		authorized.PATCH("/issues/:id", h.Issues.Update)
		authorized.DELETE("/issues/:id", h.Issues.Delete)
		authorized.PATCH("/issues/:id/reorder", h.Issues.Reorder)
		authorized.GET("/issues/:id/comments", h.Comments.ListForIssue("id"))
		authorized.POST("/issues/:id/comments", h.Comments.CreateForIssue)

		authorized.GET("/comments/issue/:issueId", h.Comments.ListForIssue("issueId"))
		authorized.POST("/comments", h.Comments.Create)
		authorized.DELETE("/comments/:id", h.Comments.Delete)
	}

	return r
}
