package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/comments"
	"github.com/zfogg/circle/internal/util"
)

// GetComments returns every comment of a post as reply trees
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	tree, err := h.comments.Tree(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": tree,
		"total":    len(comments.Flatten(tree)),
	})
}

// CreateComment creates a new comment on a post
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), userID, c.Param("id"), req.ParentID, req.Content)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// DeleteComment deletes a comment with all of its replies
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.comments.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
