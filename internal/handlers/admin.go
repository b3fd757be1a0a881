package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quarters/portal/internal/models"
	"quarters/portal/internal/service"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	users, err := h.app.Users.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": users,
		"total": len(users),
	})
}

type createUserRequest struct {
	Name       string          `json:"name" binding:"required"`
	Email      string          `json:"email" binding:"required,email"`
	Role       models.UserRole `json:"role" binding:"required"`
	Department string          `json:"department"`
}

func (h HandlerSet) AdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.app.Users.Add(c.Request.Context(), service.NewUser{
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Name       *string          `json:"name"`
	Role       *models.UserRole `json:"role"`
	Department *string          `json:"department"`
}

func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.app.Users.Update(c.Request.Context(), c.Param("id"), service.UserUpdate{
		Name:       req.Name,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	if err := h.app.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reportRequest struct {
	Department string `json:"department"`
}

// AdminRequestReport queues an analytics snapshot for the worker.
func (h HandlerSet) AdminRequestReport(c *gin.Context) {
	if h.reports == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "reports_disabled"})
		return
	}

	var req reportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	if err := h.reports.EnqueueReport(c.Request.Context(), req.Department); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "department": req.Department})
}
