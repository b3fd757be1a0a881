package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"quarters/portal/internal/app"
	"quarters/portal/internal/config"
	"quarters/portal/internal/gateway"
	"quarters/portal/internal/middleware"
	"quarters/portal/internal/models"
	"quarters/portal/internal/service"
)

// ReportQueue hands analytics jobs to the worker.
type ReportQueue interface {
	EnqueueReport(ctx context.Context, department string) error
}

// StorePinger reports whether the local store backend answers.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	app     *app.App
	reports ReportQueue
	store   StorePinger
	now     func() time.Time
}

// NewHandlerSet builds the HTTP surface over a. reports and store may be nil.
func NewHandlerSet(log zerolog.Logger, a *app.App, reports ReportQueue, store StorePinger) HandlerSet {
	return HandlerSet{
		log:     log,
		cfg:     a.Config(),
		app:     a,
		reports: reports,
		store:   store,
		now:     time.Now,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/request-code", h.RequestCode)
		auth.POST("/verify", h.VerifyCode)
	}

	protected := v1.Group("")
	protected.Use(middleware.Auth(h.cfg, h.app.Sessions))

	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/me", h.Me)
	protected.GET("/notifications", h.Notifications)

	complaints := protected.Group("/complaints")
	complaints.GET("", h.ListComplaints)
	complaints.GET("/summary", h.ComplaintSummary)
	complaints.POST("/refresh", h.RefreshComplaints)
	complaints.POST("",
		middleware.RequireRoles(models.UserRoleEmployee, models.UserRoleAdmin),
		h.CreateComplaint,
	)
	complaints.GET("/:id", h.GetComplaint)
	complaints.POST("/:id/comments", h.AddComment)
	complaints.POST("/:id/escalate", h.EscalateComplaint)
	complaints.POST("/:id/status",
		middleware.RequireRoles(models.UserRoleDepartment, models.UserRoleAdmin),
		h.UpdateComplaintStatus,
	)
	complaints.POST("/:id/assign",
		middleware.RequireRoles(models.UserRoleAdmin),
		h.AssignComplaint,
	)
	complaints.POST("/:id/authority",
		middleware.RequireRoles(models.UserRoleAdmin),
		h.AssignAuthority,
	)

	directory := protected.Group("/directory")
	directory.GET("/departments", h.ListDepartments)
	directory.GET("/authorities", h.ListAuthorities)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users", h.AdminCreateUser)
	admin.PATCH("/users/:id", h.AdminUpdateUser)
	admin.DELETE("/users/:id", h.AdminDeleteUser)
	admin.POST("/reports", h.AdminRequestReport)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (h HandlerSet) writeError(c *gin.Context, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: err.Error()})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidDomain):
		return http.StatusBadRequest, "invalid_domain"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusUnauthorized, "invalid_code"
	case errors.Is(err, service.ErrProfileUnavailable):
		return http.StatusUnauthorized, "profile_unavailable"
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrUnknownUser):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, service.ErrComplaintNotFound):
		return http.StatusNotFound, "complaint_not_found"
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email"
	case errors.Is(err, gateway.ErrUnreachable):
		return http.StatusServiceUnavailable, "backend_unreachable"
	case errors.Is(err, gateway.ErrRejected):
		return http.StatusBadGateway, "backend_rejected"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
}

func currentUser(c *gin.Context) models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}
