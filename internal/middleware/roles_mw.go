package middleware

import (
	"net/http"
	"slices"

	"task_manager/internal/logging"
	"task_manager/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware lets the request through only when the role set by
// JWTAuthMiddleware is one of allowedRoles. Denials are logged with the
// caller's role and route.
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(AuthRoleKey)
		userRole, ok := role.(string)
		if ok && slices.Contains(allowedRoles, userRole) {
			c.Next()
			return
		}

		logging.FromContext(c.Request.Context()).Warn("access denied",
			"role", role,
			"required", allowedRoles,
			"route", c.FullPath(),
		)
		msg := "You do not have permission to access this resource"
		if !ok {
			msg = "Role not found, authentication required"
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
	}
}

// AdminMiddleware restricts a route to admins
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}
