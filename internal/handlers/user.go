package handlers

import (
	"agora/internal/db"
	"agora/internal/middleware"
	"agora/internal/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  middleware.UserLookup
	logger *zap.Logger
}

func NewUserHandler(users middleware.UserLookup, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger.Named("user_handler")}
}

// Profile 用户 karma: GET /api/users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		badRequest(c, "invalid id")
		return
	}
	h.writeProfile(c, id)
}

// Me returns the caller's profile: GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	h.writeProfile(c, id)
}

func (h *UserHandler) writeProfile(c *gin.Context, id uint) {
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"karma":    user.Karma,
	})
}
