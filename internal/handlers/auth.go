package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type requestCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h HandlerSet) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.app.Auth.RequestCode(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"email": h.app.Auth.PendingEmail(),
		"mode":  h.app.Sessions.Mode(),
	})
}

type verifyRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h HandlerSet) VerifyCode(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := h.app.Auth.VerifyCode(ctx, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.app.Complaints.Fetch(ctx); err != nil {
		h.log.Warn().Err(err).Str("user_id", result.User.ID).Msg("complaint load after sign-in failed")
	}

	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	h.app.Auth.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":        currentUser(c),
		"mode":        h.app.Sessions.Mode(),
		"destination": currentUser(c).Role.HomeRoute(),
	})
}

func (h HandlerSet) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items": h.app.Notifications.Recent(currentUser(c).ID),
	})
}
