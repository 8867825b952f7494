package handler

import (
	"net/http"
	"time"

	"task_manager/internal/middleware"
	"task_manager/internal/model"
	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

const logoutCookieValue = "logout"

// CookieConfig controls the session cookie attributes
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	cookie  CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: s, cookie: cookie}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.Public(), "msg": "User created"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	_, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Failed to login")
		return
	}

	h.setTokenCookie(c, token, int(h.cookie.MaxAge.Seconds()))
	c.JSON(http.StatusOK, gin.H{"msg": "User logged in"})
}

// Logout overwrites the session cookie with an immediately expiring value
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setTokenCookie(c, logoutCookieValue, -1)
	c.JSON(http.StatusOK, gin.H{"msg": "User logged out!"})
}

// Verify reports the role of the authenticated user
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": user.Role})
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to retrieve users")
		return
	}

	resp := make([]model.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].Public())
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) currentUser(c *gin.Context) (*model.User, bool) {
	userID, err := getAuthUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return nil, false
	}
	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve user")
		return nil, false
	}
	return user, true
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, value string, maxAge int) {
	// Browsers only accept SameSite=None on secure cookies
	if h.cookie.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.TokenCookieName, value, maxAge, "/", "", h.cookie.Secure, true)
}

// RegisterAuthRoutes registers auth routes. limitMW guards the credential endpoints.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, authMW, limitMW gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", limitMW, h.Register)
		authGroup.POST("/login", limitMW, h.Login)
		authGroup.POST("/logout", h.Logout)

		authGroup.GET("/verify", authMW, h.Verify)
		authGroup.GET("/users", authMW, h.ListUsers)
		authGroup.GET("/current-user", authMW, h.CurrentUser)
	}
}
