package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/social"
	"github.com/zfogg/circle/internal/util"
	"go.uber.org/zap"
)

// toggle runs one relationship toggle for the authenticated user and
// writes the engine's result
func (h *Handlers) toggle(c *gin.Context, target social.Target, kind social.Kind) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.engine.Toggle(c.Request.Context(), userID, target, kind)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	logger.Log.Debug("Relationship toggled",
		logger.WithUserID(userID),
		logger.WithTarget(string(target.Type), target.ID),
		zap.String("status", string(result.State)),
		zap.Int("count", result.Count),
	)
	c.JSON(http.StatusOK, result)
}

// ToggleFollow follows or unfollows a user
// POST /api/v1/users/:id/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	h.toggle(c, social.UserTarget(c.Param("id")), social.Follow)
}

// TogglePostLike likes or unlikes a post
// POST /api/v1/posts/:id/like
func (h *Handlers) TogglePostLike(c *gin.Context) {
	h.toggle(c, social.PostTarget(c.Param("id")), social.Like)
}

// ToggleCommentLike likes or unlikes a comment
// POST /api/v1/comments/:id/like
func (h *Handlers) ToggleCommentLike(c *gin.Context) {
	h.toggle(c, social.CommentTarget(c.Param("id")), social.Like)
}

// ToggleBookmark bookmarks or unbookmarks a post
// POST /api/v1/posts/:id/bookmark
func (h *Handlers) ToggleBookmark(c *gin.Context) {
	h.toggle(c, social.PostTarget(c.Param("id")), social.Bookmark)
}

// SharePost records a share of a post
// POST /api/v1/posts/:id/share
func (h *Handlers) SharePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Platform string `json:"platform"`
	}
	// The body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	}

	result, err := h.engine.Share(c.Request.Context(), userID, c.Param("id"), req.Platform)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
