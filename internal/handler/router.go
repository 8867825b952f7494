package handler

import (
	"context"
	"log/slog"
	"net/http"

	"task_manager/internal/middleware"
	"task_manager/internal/notify"
	"task_manager/internal/service"
	"task_manager/internal/utils"

	"github.com/gin-gonic/gin"
)

// RouterConfig carries everything the HTTP layer is built from
type RouterConfig struct {
	Logger        *slog.Logger
	JWTUtil       *utils.JWTUtil
	Users         middleware.UserLookup
	AuthService   service.AuthService
	TaskService   service.TaskService
	Hub           *notify.Hub
	Cookie        CookieConfig
	ClientURLs    []string
	AuthRateLimit middleware.RateLimitConfig
	// HealthCheck reports store availability for /health
	HealthCheck func(ctx context.Context) error
}

// NewRouter wires middleware and every route under /api
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.CORS(cfg.ClientURLs))

	jwtAuthMW := middleware.JWTAuthMiddleware(cfg.JWTUtil, cfg.Users)
	adminRoleMW := middleware.AdminMiddleware()
	authLimitMW := middleware.RateLimitByIP(cfg.AuthRateLimit)

	apiGroup := router.Group("/api")
	NewAuthHandler(cfg.AuthService, cfg.Cookie).RegisterAuthRoutes(apiGroup, jwtAuthMW, authLimitMW)
	NewTaskHandler(cfg.TaskService).RegisterTaskRoutes(apiGroup, jwtAuthMW, adminRoleMW)
	NewNotificationHandler(cfg.Hub).RegisterNotificationRoutes(apiGroup, jwtAuthMW)

	router.GET("/health", func(c *gin.Context) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	return router, nil
}
