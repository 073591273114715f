package router

import (
	"agora/internal/config"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/services"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Store    services.Store
	Votes    *services.VoteService
	Comments *services.CommentService
	Content  *services.ContentService
	Inbox    *services.InboxService
	Logger   *zap.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// New builds the engine with the global middleware chain and all routes.
func New(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	store := cookie.NewStore([]byte(cfg.Auth.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("agora_session", store))
	r.Use(middleware.LoadUser(d.Store, []byte(cfg.Auth.JWTSecret)))

	RegisterRoutes(r, d)
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// credentials cannot be combined with a literal "*"
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	voteHandler := handlers.NewVoteHandler(d.Votes, d.Logger)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Logger)
	contentHandler := handlers.NewContentHandler(d.Content, d.Logger)
	notificationHandler := handlers.NewNotificationHandler(d.Inbox, d.Logger)
	userHandler := handlers.NewUserHandler(d.Store, d.Logger)

	r.GET("/healthz", handlers.Health(d.Store, d.Logger))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// 公共路由
	api := r.Group("/api")
	api.GET("/content", contentHandler.List)   // 排序后的内容列表
	api.GET("/comments", commentHandler.List) // 评论树
	api.GET("/users/:id", userHandler.Profile)

	// 受保护路由
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/vote", voteHandler.Vote)
		authorized.POST("/comments", commentHandler.Create)
		authorized.POST("/posts", contentHandler.CreatePost)
		authorized.POST("/polls", contentHandler.CreatePoll)
		authorized.DELETE("/content/:type/:id", contentHandler.Delete)

		authorized.GET("/me", userHandler.Me)
		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
	}
}
