package handlers

import (
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommentHandler struct {
	comments *services.CommentService
	logger   *zap.Logger
}

func NewCommentHandler(comments *services.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger.Named("comment_handler")}
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	PostID   *uint  `json:"postId"`
	PollID   *uint  `json:"pollId"`
	ParentID *uint  `json:"parentId"`
}

// Create 发表评论: POST /api/comments
func (h *CommentHandler) Create(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), userID, services.CommentInput{
		Content:  req.Content,
		PostID:   req.PostID,
		PollID:   req.PollID,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// List returns the comment tree: GET /api/comments?postId=|pollId=
func (h *CommentHandler) List(c *gin.Context) {
	var root models.ContentRef
	if id, ok := utils.ParseUint(c.Query("postId")); ok {
		root = models.ContentRef{Type: models.ContentPost, ID: id}
	} else if id, ok := utils.ParseUint(c.Query("pollId")); ok {
		root = models.ContentRef{Type: models.ContentPoll, ID: id}
	} else {
		badRequest(c, "postId or pollId is required")
		return
	}

	tree, err := h.comments.ListComments(c.Request.Context(), root, utils.TreeOptions{
		Orphans:        utils.ParseOrphanPolicy(c.Query("orphans")),
		RenderMarkdown: c.Query("render") != "false",
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": tree})
}
