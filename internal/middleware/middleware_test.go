package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task_manager/internal/logging"
	"task_manager/internal/model"
	"task_manager/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers struct {
	users map[int64]*model.User
	err   error
}

func (s stubUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func authRouter(jwtUtil *utils.JWTUtil, users UserLookup) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(jwtUtil, users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":       c.MustGet(AuthUserKey),
			"role":     c.MustGet(AuthRoleKey),
			"username": c.MustGet(AuthUsernameKey),
		})
	})
	return r
}

var knownUsers = stubUsers{users: map[int64]*model.User{
	1: {ID: 1, Username: "alice", Role: model.RoleAdmin},
}}

func TestJWTAuthMiddleware_Cookie(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	token, err := jwtUtil.GenerateToken(1, model.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	w := httptest.NewRecorder()
	authRouter(jwtUtil, knownUsers).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"role":"admin","username":"alice"}`, w.Body.String())
}

func TestJWTAuthMiddleware_BearerFallback(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	token, err := jwtUtil.GenerateToken(1, model.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(jwtUtil, knownUsers).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	expired := utils.NewJWTUtil("secret", -1)
	other := utils.NewJWTUtil("other-secret", 1)

	expiredToken, _ := expired.GenerateToken(1, model.RoleAdmin)
	foreignToken, _ := other.GenerateToken(1, model.RoleAdmin)
	ghostToken, _ := jwtUtil.GenerateToken(99, model.RoleUser)

	cases := map[string]func(r *http.Request){
		"no token":       func(r *http.Request) {},
		"logout cookie":  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "logout"}) },
		"expired":        func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: expiredToken}) },
		"wrong secret":   func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: foreignToken}) },
		"deleted user":   func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: ghostToken}) },
		"basic auth":     func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"bearer garbage": func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
	}

	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			prepare(req)
			w := httptest.NewRecorder()
			authRouter(jwtUtil, knownUsers).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestJWTAuthMiddleware_LookupFailure(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	token, _ := jwtUtil.GenerateToken(1, model.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	w := httptest.NewRecorder()
	authRouter(jwtUtil, stubUsers{err: errors.New("db down")}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminMiddleware(t *testing.T) {
	route := func(role any) *gin.Engine {
		r := gin.New()
		r.GET("/admin", func(c *gin.Context) {
			if role != nil {
				c.Set(AuthRoleKey, role)
			}
			c.Next()
		}, AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	for role, want := range map[any]int{
		model.RoleAdmin: http.StatusOK,
		model.RoleUser:  http.StatusForbidden,
		42:              http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		route(role).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, want, w.Code, role)
	}

	w := httptest.NewRecorder()
	route(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoleMiddleware_LogsDenial(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.DELETE("/tasks/:id", func(c *gin.Context) {
		c.Set(AuthRoleKey, model.RoleUser)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}, RoleMiddleware(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/tasks/7", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"You do not have permission to access this resource"}`, w.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "access denied", entry["msg"])
	assert.Equal(t, model.RoleUser, entry["role"])
	assert.Equal(t, "/tasks/:id", entry["route"])
}

func TestRateLimitByIP(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimitByIP(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	limited := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// Separate bucket per IP
	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen *slog.Logger
	r := gin.New()
	r.Use(RequestLogger(base))
	r.GET("/ping", func(c *gin.Context) {
		seen = logging.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 26)
	assert.NotNil(t, seen)
	assert.Contains(t, buf.String(), `"msg":"http_request"`)
	assert.Contains(t, buf.String(), `"status":200`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"req_id":"given-id"`)
}
