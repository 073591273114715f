package handlers

import (
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VoteHandler struct {
	votes  *services.VoteService
	logger *zap.Logger
}

func NewVoteHandler(votes *services.VoteService, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{votes: votes, logger: logger.Named("vote_handler")}
}

type voteRequest struct {
	TargetID   uint   `json:"targetId" binding:"required"`
	TargetType string `json:"targetType" binding:"required"`
	Direction  string `json:"direction" binding:"required"`
}

// Vote toggles the caller's vote: POST /api/vote
func (h *VoteHandler) Vote(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "targetId, targetType and direction are required")
		return
	}

	result, err := h.votes.ApplyVote(c.Request.Context(), userID, req.TargetID,
		models.TargetType(req.TargetType), models.Direction(req.Direction))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{
		"success":  true,
		"userVote": result.UserVote,
	}
	if result.Counts != nil {
		resp["updatedCounts"] = result.Counts
	}
	c.JSON(http.StatusOK, resp)
}
