package middleware

import (
	"context"
	"net/http"
	"strings"

	"task_manager/internal/logging"
	"task_manager/internal/model"
	"task_manager/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	AuthUserKey     = "authUser"
	AuthRoleKey     = "authRole"
	AuthUsernameKey = "authUsername"

	// TokenCookieName is the cookie carrying the session token
	TokenCookieName = "token"
)

// UserLookup resolves the user a token was issued to
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// JWTAuthMiddleware authenticates the request from the session cookie, falling
// back to an "Authorization: Bearer" header.
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}

		claims, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			logging.FromContext(c.Request.Context()).Debug("rejected session token", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			logging.FromContext(c.Request.Context()).Error("failed to load session user", "user_id", claims.UserID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}

		// Set user information in context
		c.Set(AuthUserKey, claims.UserID)
		c.Set(AuthRoleKey, claims.Role)
		c.Set(AuthUsernameKey, user.Username)

		ctx := c.Request.Context()
		ctx = logging.WithContext(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie != "" {
		return cookie, true
	}

	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1], true
	}
	return "", false
}
