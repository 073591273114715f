package handlers

import (
	"agora/internal/db"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store  *db.MemoryStore
	router *gin.Engine
	post   *models.Post
}

// asUser stands in for LoadUser: the X-User header becomes the resolved id.
func asUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := utils.ParseUint(c.GetHeader("X-User")); ok {
			c.Set(middleware.UserIDKey, id)
		}
		c.Next()
	}
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := db.NewMemoryStore()
	ctx := context.Background()
	_ = store.CreateUser(ctx, &models.User{ID: 1, Username: "author"})
	_ = store.CreateUser(ctx, &models.User{ID: 2, Username: "voter"})
	post := &models.Post{UserID: 1, Title: "hello", CreatedAt: time.Now().Add(-time.Hour)}
	_ = store.CreatePost(ctx, post)

	cache, err := utils.NewQueryCache(10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	deps := services.Deps{Store: store, Cache: cache, Notifier: services.NewStoreNotifier(store)}
	counter := services.NewCounterAggregator(deps)
	log := zap.NewNop()

	vh := NewVoteHandler(services.NewVoteService(deps, counter, 3), log)
	ch := NewCommentHandler(services.NewCommentService(deps, counter), log)
	th := NewContentHandler(services.NewContentService(deps), log)
	nh := NewNotificationHandler(services.NewInboxService(deps), log)
	uh := NewUserHandler(store, log)

	r := gin.New()
	r.Use(asUser())
	r.GET("/healthz", Health(store, log))
	r.POST("/api/vote", vh.Vote)
	r.POST("/api/comments", ch.Create)
	r.GET("/api/comments", ch.List)
	r.GET("/api/content", th.List)
	r.POST("/api/posts", th.CreatePost)
	r.POST("/api/polls", th.CreatePoll)
	r.DELETE("/api/content/:type/:id", th.Delete)
	r.GET("/api/notifications", nh.List)
	r.POST("/api/notifications/read-all", nh.ReadAll)
	r.POST("/api/notifications/:id/read", nh.Read)
	r.GET("/api/users/:id", uh.Profile)
	r.GET("/api/me", uh.Me)

	return &testEnv{store: store, router: r, post: post}
}

func (e *testEnv) do(t *testing.T, method, path string, user uint, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("X-User", fmt.Sprint(user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestVoteHandler(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/vote", 2, gin.H{"targetId": e.post.ID, "targetType": "post", "direction": "up"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Success       bool            `json:"success"`
		UserVote      string          `json:"userVote"`
		UpdatedCounts *models.Counts `json:"updatedCounts"`
	}
	decode(t, w, &resp)
	if !resp.Success || resp.UserVote != "up" || resp.UpdatedCounts == nil || resp.UpdatedCounts.Upvotes != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	w = e.do(t, http.MethodPost, "/api/vote", 2, gin.H{"targetId": e.post.ID, "targetType": "post", "direction": "up"})
	decode(t, w, &resp)
	if resp.UserVote != "none" || resp.UpdatedCounts.Upvotes != 0 {
		t.Fatalf("undo resp = %+v", resp)
	}
}

func TestVoteHandler_Errors(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing fields", gin.H{"targetId": 1}, http.StatusBadRequest},
		{"bad direction", gin.H{"targetId": e.post.ID, "targetType": "post", "direction": "left"}, http.StatusBadRequest},
		{"bad type", gin.H{"targetId": e.post.ID, "targetType": "story", "direction": "up"}, http.StatusBadRequest},
		{"missing target", gin.H{"targetId": 404, "targetType": "post", "direction": "up"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := e.do(t, http.MethodPost, "/api/vote", 2, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidTarget, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", services.ErrInvalidParent), http.StatusBadRequest},
		{services.ErrInvalidVote, http.StatusBadRequest},
		{services.ErrInvalidContent, http.StatusBadRequest},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrWriteConflict, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCommentHandlers(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/comments", 2, gin.H{"content": "a", "postId": e.post.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	var root models.Comment
	decode(t, w, &root)

	w = e.do(t, http.MethodPost, "/api/comments", 1, gin.H{"content": "b", "postId": e.post.ID, "parentId": root.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("reply status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/comments", 1, gin.H{"content": "c", "postId": e.post.ID, "parentId": 999}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad parent status = %d", w.Code)
	}

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/comments?postId=%d", e.post.ID), 0, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var tree struct {
		Comments []struct {
			ID          uint   `json:"id"`
			ContentHTML string `json:"content_html"`
			Children    []struct {
				ID uint `json:"id"`
			} `json:"children"`
		} `json:"comments"`
	}
	decode(t, w, &tree)
	if len(tree.Comments) != 1 || len(tree.Comments[0].Children) != 1 || tree.Comments[0].ContentHTML == "" {
		t.Fatalf("tree = %+v", tree)
	}

	if w := e.do(t, http.MethodGet, "/api/comments", 0, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing root status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/comments?pollId=77", 0, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown poll status = %d", w.Code)
	}
}

func TestContentHandlers(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/polls", 2, gin.H{"title": "best?", "options": []string{"a", "b"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("poll status = %d body=%s", w.Code, w.Body.String())
	}
	var poll models.Poll
	decode(t, w, &poll)

	w = e.do(t, http.MethodGet, "/api/content?sortBy=new", 2, nil)
	var feed struct {
		Items []models.ContentItem `json:"items"`
	}
	decode(t, w, &feed)
	if len(feed.Items) != 2 || feed.Items[0].Type != models.ContentPoll {
		t.Fatalf("feed = %+v", feed.Items)
	}
	if feed.Items[0].UserVote != models.DirectionNone {
		t.Fatalf("user vote not hydrated: %+v", feed.Items[0])
	}

	if w := e.do(t, http.MethodGet, "/api/content?bowlId=abc", 0, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad bowl status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/content?type=story", 0, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad type status = %d", w.Code)
	}

	path := fmt.Sprintf("/api/content/poll/%d", poll.ID)
	if w := e.do(t, http.MethodDelete, path, 1, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, path, 2, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, path, 2, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/posts", 2, gin.H{"content": "no title"}); w.Code != http.StatusBadRequest {
		t.Fatalf("untitled post status = %d", w.Code)
	}
}

func TestNotificationHandlers(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/api/vote", 2, gin.H{"targetId": e.post.ID, "targetType": "post", "direction": "down"})

	w := e.do(t, http.MethodGet, "/api/notifications", 1, nil)
	var inbox struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	decode(t, w, &inbox)
	if len(inbox.Notifications) != 1 || inbox.Unread != 1 || inbox.Notifications[0].Type != models.NotificationTypeDownvote {
		t.Fatalf("inbox = %+v", inbox)
	}

	id := inbox.Notifications[0].ID
	if w := e.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", id), 2, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign read status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", id), 1, nil); w.Code != http.StatusNoContent {
		t.Fatalf("read status = %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/notifications/read-all", 1, nil)
	var updated struct {
		Updated int64 `json:"updated"`
	}
	decode(t, w, &updated)
	if updated.Updated != 0 {
		t.Fatalf("updated = %d, want 0", updated.Updated)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	if w := e.do(t, http.MethodGet, "/healthz", 0, nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUserHandlers(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/api/vote", 2, gin.H{"targetId": e.post.ID, "targetType": "post", "direction": "up"})

	w := e.do(t, http.MethodGet, "/api/users/1", 0, nil)
	var profile struct {
		Username string `json:"username"`
		Karma    int    `json:"karma"`
	}
	decode(t, w, &profile)
	if profile.Username != "author" || profile.Karma != 2 {
		t.Fatalf("profile = %+v", profile)
	}

	if w := e.do(t, http.MethodGet, "/api/users/404", 0, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/users/x", 0, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/me", 2, nil)
	decode(t, w, &profile)
	if profile.Username != "voter" {
		t.Fatalf("me = %+v", profile)
	}
}
