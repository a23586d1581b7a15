package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/repository"
	"github.com/zfogg/circle/internal/social"
	"github.com/zfogg/circle/internal/util"
	"gorm.io/gorm"
)

// userSummary is the public face of a user in lists
type userSummary struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	AvatarURL      string `json:"avatar_url"`
	Signature      string `json:"signature"`
	FollowersCount int    `json:"followers_count"`
}

func summarize(users []*models.User) []userSummary {
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{
			ID:             u.ID,
			Nickname:       u.Nickname,
			AvatarURL:      u.AvatarURL,
			Signature:      u.Signature,
			FollowersCount: u.FollowersCount,
		})
	}
	return out
}

// GetMe returns the authenticated user's own profile
// GET /api/v1/users/me
func (h *Handlers) GetMe(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile edits the authenticated user's profile fields
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req repository.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUserProfile returns a user's public profile. The user row and
// is_following come from the same snapshot.
// GET /api/v1/users/:id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	targetID := c.Param("id")
	viewerID := util.OptionalUserID(c)
	ctx := c.Request.Context()

	var user *models.User
	snaps, err := h.engine.StatesWith(ctx, viewerID, social.UserTarget(targetID),
		func(tx *gorm.DB, target social.Target) (err error) {
			user, err = repository.NewUserRepository(tx).GetUser(ctx, target.ID)
			return err
		}, social.Follow)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	snap := snaps[social.Follow]

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":              user.ID,
			"nickname":        user.Nickname,
			"avatar_url":      user.AvatarURL,
			"background_url":  user.BackgroundURL,
			"signature":       user.Signature,
			"bio":             user.Bio,
			"gender":          user.Gender,
			"location":        user.Location,
			"followers_count": user.FollowersCount,
			"following_count": user.FollowingCount,
			"posts_count":     user.PostsCount,
			"likes_received":  user.LikesReceived,
			"created_at":      user.CreatedAt,
		},
		"is_following":   snap.Active,
		"is_own_profile": viewerID != "" && viewerID == user.ID,
	})
}

// GetUserFollowers gets the list of users following a user
// GET /api/v1/users/:id/followers
func (h *Handlers) GetUserFollowers(c *gin.Context) {
	h.followList(c, "followers", h.users.GetFollowers)
}

// GetUserFollowing gets the list of users a user follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetUserFollowing(c *gin.Context) {
	h.followList(c, "following", h.users.GetFollowing)
}

type userLister func(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)

func (h *Handlers) followList(c *gin.Context, key string, list userLister) {
	userID := c.Param("id")
	limit, offset := util.Pagination(c)
	ctx := c.Request.Context()

	if _, err := h.users.GetUser(ctx, userID); err != nil {
		util.RespondWithError(c, err)
		return
	}

	users, err := list(ctx, userID, limit, offset)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	summaries := summarize(users)
	c.JSON(http.StatusOK, gin.H{
		key: summaries,
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(summaries),
		},
	})
}
