package handler

import (
	"errors"
	"net/http"

	"task_manager/internal/logging"
	"task_manager/internal/notify"

	"github.com/gin-gonic/gin"
)

// NotificationHandler upgrades authenticated requests to the event stream
type NotificationHandler struct {
	hub *notify.Hub
}

func NewNotificationHandler(hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// Connect joins the caller to their notification room and blocks until the
// connection ends.
func (h *NotificationHandler) Connect(c *gin.Context) {
	userID, err := getAuthUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil && !errors.Is(err, notify.ErrHubClosed) {
		logging.FromContext(c.Request.Context()).Warn("websocket upgrade failed", "err", err)
	}
}

func (h *NotificationHandler) RegisterNotificationRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/ws", authMW, h.Connect)
}
