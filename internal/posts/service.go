// Package posts manages the post lifecycle. Media is handled elsewhere;
// image and video URLs are stored exactly as given.
package posts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/zfogg/circle/internal/counters"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxTitleLength = 200
	MaxImages      = 9
)

var (
	ErrUnauthorized = errors.New("posts: actor required")
	ErrPostNotFound = errors.New("posts: post not found")
	ErrForbidden    = errors.New("posts: only the author may delete a post")
)

// ValidationError reports an invalid input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("posts: %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// CreateInput is the author-supplied part of a post
type CreateInput struct {
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	PostType       models.PostType   `json:"post_type"`
	Status         models.PostStatus `json:"status"`
	Images         []string          `json:"images"`
	VideoURL       string            `json:"video_url"`
	VideoThumbnail string            `json:"video_thumbnail"`
}

func (in *CreateInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	if in.Title == "" {
		return invalid("title", "title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return invalid("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if in.Content == "" {
		return invalid("content", "content is required")
	}

	if in.PostType == "" {
		in.PostType = models.PostTypeText
	}
	if !in.PostType.Valid() {
		return invalid("post_type", "unknown post type")
	}
	if in.Status == "" {
		in.Status = models.PostStatusPublished
	}
	if in.Status != models.PostStatusDraft && in.Status != models.PostStatusPublished {
		return invalid("status", "new posts must be draft or published")
	}

	if len(in.Images) > MaxImages {
		return invalid("images", fmt.Sprintf("at most %d images", MaxImages))
	}
	for _, raw := range append(append([]string{}, in.Images...), in.VideoURL, in.VideoThumbnail) {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" {
			return invalid("media", fmt.Sprintf("%q is not an absolute URL", raw))
		}
	}
	if in.PostType == models.PostTypeVideo && in.VideoURL == "" {
		return invalid("video_url", "video posts need a video URL")
	}
	return nil
}

// Service manages posts
type Service struct {
	db *gorm.DB
}

// NewService creates a post service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores a new post and bumps the author's posts_count
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*models.Post, error) {
	if actorID == "" {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:       actorID,
		Title:          in.Title,
		Content:        in.Content,
		PostType:       in.PostType,
		Status:         in.Status,
		Images:         in.Images,
		VideoURL:       in.VideoURL,
		VideoThumbnail: in.VideoThumbnail,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrUnauthorized
			}
			return fmt.Errorf("insert post: %w", err)
		}
		if _, err := counters.Apply(tx, counters.KindPost, counters.Created, counters.Refs{ActorID: actorID, TargetID: post.ID}); err != nil {
			if errors.Is(err, counters.ErrMissingOwner) {
				return ErrUnauthorized
			}
			return err
		}
		return tx.Preload("Author").First(post, "id = ?", post.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Post created", logger.WithUserID(actorID), logger.WithPostID(post.ID))
	return post, nil
}

// Delete removes a post with its comments, likes, bookmarks and shares.
// Only the author may delete.
func (s *Service) Delete(ctx context.Context, actorID, postID string) error {
	if actorID == "" {
		return ErrUnauthorized
	}
	if !validID(postID) {
		return ErrPostNotFound
	}

	var removedComments int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "author_id").
			Where("id = ?", postID).
			Take(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}
		if post.AuthorID != actorID {
			return ErrForbidden
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("target_type = ? AND target_id IN (?)", models.TargetComment, commentIDs).
			Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.TargetPost, postID).
			Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete post likes: %w", err)
		}

		res := tx.Where("post_id = ?", postID).Delete(&models.Comment{})
		if res.Error != nil {
			return fmt.Errorf("delete comments: %w", res.Error)
		}
		removedComments = res.RowsAffected

		if err := tx.Where("post_id = ?", postID).Delete(&models.Bookmark{}).Error; err != nil {
			return fmt.Errorf("delete bookmarks: %w", err)
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Share{}).Error; err != nil {
			return fmt.Errorf("delete shares: %w", err)
		}
		if err := tx.Delete(&models.Post{}, "id = ?", postID).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}

		_, err = counters.Apply(tx, counters.KindPost, counters.Removed, counters.Refs{ActorID: post.AuthorID, TargetID: postID})
		return err
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Post deleted",
		logger.WithUserID(actorID),
		logger.WithPostID(postID),
		zap.Int64("comments_removed", removedComments),
	)
	return nil
}

// Get returns a post with its author. Deleted posts are not found.
func (s *Service) Get(ctx context.Context, postID string) (*models.Post, error) {
	if !validID(postID) {
		return nil, ErrPostNotFound
	}
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND status <> ?", postID, models.PostStatusDeleted).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	return &post, nil
}

// List returns published posts, newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("status = ?", models.PostStatusPublished).
		Order("created_at DESC, id DESC").
		Scopes(database.Paginate(limit, offset)).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListByAuthor returns an author's published posts, newest first
func (s *Service) ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]models.Post, error) {
	if !validID(authorID) {
		return []models.Post{}, nil
	}
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ? AND status = ?", authorID, models.PostStatusPublished).
		Order("created_at DESC, id DESC").
		Scopes(database.Paginate(limit, offset)).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

// ListBookmarked returns the posts userID bookmarked, most recent bookmark first
func (s *Service) ListBookmarked(ctx context.Context, userID string, limit, offset int) ([]models.Post, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ? AND posts.status <> ?", userID, models.PostStatusDeleted).
		Order("bookmarks.created_at DESC").
		Scopes(database.Paginate(limit, offset)).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return posts, nil
}

// IncrementViews atomically adds one view and returns the new total
func (s *Service) IncrementViews(ctx context.Context, postID string) (int, error) {
	if !validID(postID) {
		return 0, ErrPostNotFound
	}
	var views int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ? AND status = ?", postID, models.PostStatusPublished).
			UpdateColumn("views_count", gorm.Expr("views_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("increment views: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPostNotFound
		}
		var err error
		views, err = counters.Read(tx, "posts", "views_count", postID)
		return err
	})
	return views, err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
