package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quarters/portal/internal/config"
	"quarters/portal/internal/models"
	"quarters/portal/internal/security"
)

const (
	CurrentUserKey  = "current_user"
	AccessClaimsKey = "access_claims"
)

// SessionSource exposes the active portal session.
type SessionSource interface {
	Current() (models.User, string, bool)
}

// Auth accepts a bearer token only while it matches the active session, so a
// logout invalidates every token issued before it.
func Auth(cfg *config.AppConfig, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		user, sessionID, ok := sessions.Current()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}
		if user.ID != claims.UserID || sessionID != claims.SessionID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_mismatch"})
			return
		}

		c.Set(AccessClaimsKey, *claims)
		c.Set(CurrentUserKey, user)

		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
