package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zfogg/circle/internal/models"
	"gorm.io/gorm"
)

// Resolved describes an existing target
type Resolved struct {
	Target Target
	// OwnerID is the author of a post or comment, or the user itself
	OwnerID string
	// PostID is set for comments
	PostID string
}

// Resolver checks that a target exists and is visible to the actor.
// Implementations run inside the caller's transaction and return
// ErrTargetNotFound for missing, dangling or hidden targets.
type Resolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, actorID string, target Target) (Resolved, error)
}

// GormResolver resolves targets against the primary tables
type GormResolver struct{}

// NewGormResolver returns the default Resolver
func NewGormResolver() *GormResolver {
	return &GormResolver{}
}

func (r *GormResolver) Resolve(ctx context.Context, tx *gorm.DB, actorID string, target Target) (Resolved, error) {
	if _, err := uuid.Parse(target.ID); err != nil {
		return Resolved{}, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}

	db := tx.WithContext(ctx)
	res := Resolved{Target: target}
	var err error

	switch target.Type {
	case models.TargetUser:
		var user models.User
		err = db.Select("id").Where("id = ?", target.ID).Take(&user).Error
		res.OwnerID = user.ID
	case models.TargetPost:
		var post models.Post
		err = db.Select("id", "author_id").
			Scopes(models.VisibleTo(actorID)).
			Where("id = ?", target.ID).
			Take(&post).Error
		res.OwnerID = post.AuthorID
	case models.TargetComment:
		var comment models.Comment
		err = db.Select("comments.id", "comments.author_id", "comments.post_id").
			Joins("JOIN posts ON posts.id = comments.post_id").
			Scopes(models.VisibleTo(actorID)).
			Where("comments.id = ?", target.ID).
			Take(&comment).Error
		res.OwnerID = comment.AuthorID
		res.PostID = comment.PostID
	default:
		return Resolved{}, fmt.Errorf("%w: unknown target type %q", ErrInvalidTarget, target.Type)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Resolved{}, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %s: %w", target, err)
	}
	return res, nil
}
