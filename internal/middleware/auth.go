package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamtask-api/internal/constants"
	apierrors "github.com/yukikurage/teamtask-api/internal/errors"
	"github.com/yukikurage/teamtask-api/internal/models"
	"github.com/yukikurage/teamtask-api/internal/services"
)

// RequireAuth checks if the user is authenticated via session and exposes the
// caller's id and role to the handlers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)
		role, _ := session.Get(constants.ContextKeyRole).(string)

		if userID == nil || !models.Role(role).Valid() {
			apierrors.Unauthorized(c, "")
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyRole, models.Role(role))
		c.Next()
	}
}

// RequireRole rejects callers whose role differs from role. It must run after
// RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetCaller(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if caller.Role != role {
			apierrors.Forbidden(c, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetCaller returns the identity of the authenticated caller.
func GetCaller(c *gin.Context) (services.Caller, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return services.Caller{}, false
	}

	var role models.Role
	value, _ := c.Get(constants.ContextKeyRole)
	switch v := value.(type) {
	case models.Role:
		role = v
	case string:
		role = models.Role(v)
	}
	if !role.Valid() {
		return services.Caller{}, false
	}

	return services.Caller{UserID: userID, Role: role}, true
}
