package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/posts"
	"github.com/zfogg/circle/internal/social"
	"github.com/zfogg/circle/internal/util"
	"gorm.io/gorm"
)

// CreatePost creates a new post for the authenticated user
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req posts.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// GetPost returns a post with the viewer's like and bookmark state. The
// post row and both flags are read in one snapshot.
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	viewerID := util.OptionalUserID(c)
	ctx := c.Request.Context()

	var post *models.Post
	snaps, err := h.engine.StatesWith(ctx, viewerID, social.PostTarget(c.Param("id")),
		func(tx *gorm.DB, target social.Target) (err error) {
			post, err = posts.NewService(tx).Get(ctx, target.ID)
			return err
		}, social.Like, social.Bookmark)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":          post,
		"is_liked":      snaps[social.Like].Active,
		"is_bookmarked": snaps[social.Bookmark].Active,
	})
}

// ListPosts lists published posts, newest first
// GET /api/v1/posts
func (h *Handlers) ListPosts(c *gin.Context) {
	limit, offset := util.Pagination(c)

	list, err := h.posts.List(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	respondPosts(c, list, limit, offset)
}

// GetUserPosts lists a user's published posts
// GET /api/v1/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	limit, offset := util.Pagination(c)

	list, err := h.posts.ListByAuthor(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	respondPosts(c, list, limit, offset)
}

// GetBookmarkedPosts lists the posts the authenticated user bookmarked
// GET /api/v1/users/me/bookmarks
func (h *Handlers) GetBookmarkedPosts(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c)

	list, err := h.posts.ListBookmarked(c.Request.Context(), userID, limit, offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	respondPosts(c, list, limit, offset)
}

// DeletePost deletes a post and everything hanging off it
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ViewPost counts one view of a post
// POST /api/v1/posts/:id/view
func (h *Handlers) ViewPost(c *gin.Context) {
	views, err := h.posts.IncrementViews(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views_count": views})
}

func respondPosts(c *gin.Context, list []models.Post, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"posts": list,
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(list),
		},
	})
}
