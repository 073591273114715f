package handlers

import (
	"agora/internal/middleware"
	"agora/internal/services"
	"agora/internal/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	inbox  *services.InboxService
	logger *zap.Logger
}

func NewNotificationHandler(inbox *services.InboxService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, logger: logger.Named("notification_handler")}
}

// List: GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	rows, err := h.inbox.List(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	unread := 0
	for _, n := range rows {
		if !n.IsRead {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows, "unread": unread})
}

// Read: POST /api/notifications/:id/read
func (h *NotificationHandler) Read(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	id, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		badRequest(c, "invalid id")
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReadAll: POST /api/notifications/read-all
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	n, err := h.inbox.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
