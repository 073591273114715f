package handlers

import (
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContentHandler struct {
	content *services.ContentService
	logger  *zap.Logger
}

func NewContentHandler(content *services.ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{content: content, logger: logger.Named("content_handler")}
}

// List returns the ranked feed: GET /api/content
func (h *ContentHandler) List(c *gin.Context) {
	orgID, err := utils.ParseOptionalUint(c.Query("organizationId"))
	if err != nil {
		badRequest(c, "invalid organizationId")
		return
	}
	bowlID, err := utils.ParseOptionalUint(c.Query("bowlId"))
	if err != nil {
		badRequest(c, "invalid bowlId")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			badRequest(c, "invalid limit")
			return
		}
	}

	userID, _ := middleware.CurrentUserID(c)
	items, err := h.content.ListContent(c.Request.Context(), models.ContentFilter{
		OrganizationID: orgID,
		BowlID:         bowlID,
		Type:           models.ContentType(c.Query("type")),
		TimeWindow:     models.TimeWindow(c.Query("timeWindow")),
		Sort:           models.SortAlgorithm(c.Query("sortBy")),
		UserID:         userID,
		Limit:          limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createPostRequest struct {
	Title          string `json:"title" binding:"required"`
	Content        string `json:"content"`
	OrganizationID *uint  `json:"organizationId"`
	BowlID         *uint  `json:"bowlId"`
}

func (r createPostRequest) input() services.PostInput {
	return services.PostInput{
		Title:          r.Title,
		Content:        r.Content,
		OrganizationID: r.OrganizationID,
		BowlID:         r.BowlID,
	}
}

// CreatePost: POST /api/posts
func (h *ContentHandler) CreatePost(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title is required")
		return
	}
	post, err := h.content.CreatePost(c.Request.Context(), userID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

type createPollRequest struct {
	createPostRequest
	Options []string `json:"options" binding:"required"`
}

// CreatePoll: POST /api/polls
func (h *ContentHandler) CreatePoll(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title and options are required")
		return
	}
	poll, err := h.content.CreatePoll(c.Request.Context(), userID, req.input(), req.Options)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, poll)
}

// Delete: DELETE /api/content/:type/:id
func (h *ContentHandler) Delete(c *gin.Context) {
	typ := models.ContentType(c.Param("type"))
	if typ != models.ContentPost && typ != models.ContentPoll {
		badRequest(c, "type must be post or poll")
		return
	}
	id, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		badRequest(c, "invalid id")
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	if err := h.content.DeleteContent(c.Request.Context(), userID, models.ContentRef{Type: typ, ID: id}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
