package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/circle/internal/comments"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/posts"
	"github.com/zfogg/circle/internal/repository"
	"github.com/zfogg/circle/internal/social"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db       *gorm.DB
	engine   *social.Engine
	comments *comments.Service
	posts    *posts.Service
	users    repository.UserRepository
}

// NewHandlers wires the services behind the API onto db. A nil m uses the
// global metrics.
func NewHandlers(db *gorm.DB, m *metrics.Metrics) *Handlers {
	if m == nil {
		m = metrics.Get()
	}
	return &Handlers{
		db:       db,
		engine:   social.NewEngine(db, social.WithMetrics(m)),
		comments: comments.NewService(db, m),
		posts:    posts.NewService(db),
		users:    repository.NewUserRepository(db),
	}
}

// Middlewares are the per-group middlewares the API routes need
type Middlewares struct {
	// Auth rejects unauthenticated requests and sets user_id
	Auth gin.HandlerFunc
	// OptionalAuth sets user_id when a valid token is present
	OptionalAuth gin.HandlerFunc
	// ToggleLimit rate-limits relationship toggles
	ToggleLimit gin.HandlerFunc
}

func passThrough(c *gin.Context) { c.Next() }

// RegisterRoutes mounts the /api/v1 routes on r
func (h *Handlers) RegisterRoutes(r gin.IRouter, mw Middlewares) {
	if mw.OptionalAuth == nil {
		mw.OptionalAuth = passThrough
	}
	if mw.ToggleLimit == nil {
		mw.ToggleLimit = passThrough
	}

	api := r.Group("/api/v1")

	// User routes
	users := api.Group("/users")
	{
		users.GET("/me", mw.Auth, h.GetMe)
		users.PUT("/me", mw.Auth, h.UpdateProfile)
		users.GET("/me/bookmarks", mw.Auth, h.GetBookmarkedPosts)

		users.GET("/:id", mw.OptionalAuth, h.GetUserProfile)
		users.GET("/:id/posts", h.GetUserPosts)
		users.GET("/:id/followers", h.GetUserFollowers)
		users.GET("/:id/following", h.GetUserFollowing)
		users.POST("/:id/follow", mw.Auth, mw.ToggleLimit, h.ToggleFollow)
	}

	// Post routes
	posts := api.Group("/posts")
	{
		posts.GET("", h.ListPosts)
		posts.POST("", mw.Auth, h.CreatePost)
		posts.GET("/:id", mw.OptionalAuth, h.GetPost)
		posts.DELETE("/:id", mw.Auth, h.DeletePost)

		posts.POST("/:id/like", mw.Auth, mw.ToggleLimit, h.TogglePostLike)
		posts.POST("/:id/bookmark", mw.Auth, mw.ToggleLimit, h.ToggleBookmark)
		posts.POST("/:id/share", mw.Auth, h.SharePost)
		posts.POST("/:id/view", h.ViewPost)

		posts.GET("/:id/comments", mw.OptionalAuth, h.GetComments)
		posts.POST("/:id/comments", mw.Auth, h.CreateComment)
	}

	// Comment routes
	comments := api.Group("/comments")
	{
		comments.DELETE("/:id", mw.Auth, h.DeleteComment)
		comments.POST("/:id/like", mw.Auth, mw.ToggleLimit, h.ToggleCommentLike)
	}
}

// RegisterOps mounts /health and /metrics on r
func (h *Handlers) RegisterOps(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Health reports whether the database answers
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unreachable"
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
		"service":   "circle-backend",
	})
}
