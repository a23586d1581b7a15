// Package comments stores threaded comments and assembles them into reply
// trees. Top-level comments drive posts.comments_count; replies never do.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/zfogg/circle/internal/counters"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxContentLength is the longest comment body accepted, in runes
const MaxContentLength = 2000

// deleteChunk bounds the number of ids bound into one IN clause
const deleteChunk = 500

var (
	ErrUnauthorized    = errors.New("comments: actor required")
	ErrPostNotFound    = errors.New("comments: post not found")
	ErrCommentNotFound = errors.New("comments: comment not found")
	ErrInvalidParent   = errors.New("comments: parent is not a comment on this post")
	ErrEmptyContent    = errors.New("comments: content is required")
	ErrContentTooLong  = errors.New("comments: content too long")
	ErrForbidden       = errors.New("comments: only the author may delete a comment")
)

// Service manages comments
type Service struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	events  *telemetry.BusinessEvents
}

// NewService creates a comment service. A nil m uses the global metrics.
func NewService(db *gorm.DB, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.Get()
	}
	return &Service{
		db:      db,
		metrics: m,
		events:  telemetry.GetBusinessEvents(),
	}
}

// DeleteResult reports the effect of a cascading delete
type DeleteResult struct {
	Removed       int `json:"removed"`
	CommentsCount int `json:"comments_count"`
}

// Tree returns every comment of a post assembled into reply trees. A draft's
// thread is only visible to its author.
func (s *Service) Tree(ctx context.Context, viewerID, postID string) ([]*Node, error) {
	ctx, span := s.events.TraceCommentTree(ctx, postID)
	defer span.End()
	start := time.Now()

	var rows []models.Comment
	err := database.ReadSnapshot(ctx, s.db, func(tx *gorm.DB) error {
		if err := postExists(tx, viewerID, postID, false); err != nil {
			return err
		}
		return tx.Preload("Author").
			Where("post_id = ?", postID).
			Order("created_at ASC, id ASC").
			Find(&rows).Error
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	tree, err := Assemble(rows)
	if err != nil {
		logger.Log.Error("Comment thread failed to assemble",
			logger.WithPostID(postID),
			zap.Int("comments", len(rows)),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.CommentTreeDuration.Observe(time.Since(start).Seconds())
	return tree, nil
}

// Create adds a comment to a post, optionally as a reply to parentID
func (s *Service) Create(ctx context.Context, actorID, postID string, parentID *string, content string) (*models.Comment, error) {
	if actorID == "" {
		return nil, ErrUnauthorized
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: actorID,
		Content:  content,
		ParentID: parentID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, actorID, postID, true); err != nil {
			return err
		}

		if parentID != nil {
			if !validID(*parentID) {
				return ErrInvalidParent
			}
			var parent models.Comment
			err := tx.Select("id", "post_id").Where("id = ?", *parentID).Take(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && parent.PostID != postID) {
				return ErrInvalidParent
			}
			if err != nil {
				return fmt.Errorf("load parent comment: %w", err)
			}
		}

		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		if comment.IsTopLevel() {
			if _, err := counters.Apply(tx, counters.KindComment, counters.Created, counters.Refs{ActorID: actorID, TargetID: postID}); err != nil {
				return err
			}
		}
		return tx.Preload("Author").First(comment, "id = ?", comment.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("Comment created",
		logger.WithUserID(actorID),
		logger.WithPostID(postID),
		logger.WithCommentID(comment.ID),
		zap.Bool("reply", !comment.IsTopLevel()),
	)
	return comment, nil
}

// Delete removes a comment with its entire reply subtree and every like
// that targets one of those comments. posts.comments_count drops by one
// only when the removed comment was top-level.
func (s *Service) Delete(ctx context.Context, actorID, commentID string) (DeleteResult, error) {
	if actorID == "" {
		return DeleteResult{}, ErrUnauthorized
	}
	if !validID(commentID) {
		return DeleteResult{}, ErrCommentNotFound
	}
	ctx, span := s.events.TraceCommentDelete(ctx, commentID)
	defer span.End()

	var result DeleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		err := tx.Where("id = ?", commentID).Take(&root).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		if err != nil {
			return fmt.Errorf("load comment: %w", err)
		}
		if root.AuthorID != actorID {
			return ErrForbidden
		}

		// Serializes against replies being added to the same post
		if err := lockPost(tx, root.PostID); err != nil {
			return err
		}

		ids, err := subtree(tx, root)
		if err != nil {
			return err
		}
		if err := deleteComments(tx, ids); err != nil {
			return err
		}

		result.Removed = len(ids)
		if root.IsTopLevel() {
			out, err := counters.Apply(tx, counters.KindComment, counters.Removed, counters.Refs{ActorID: actorID, TargetID: root.PostID})
			if err != nil {
				return err
			}
			result.CommentsCount = out.Primary.Value
			return nil
		}

		result.CommentsCount, err = counters.Read(tx, "posts", "comments_count", root.PostID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return DeleteResult{}, err
	}

	s.metrics.CommentCascadeSize.Observe(float64(result.Removed))
	logger.Log.Info("Comment deleted",
		logger.WithUserID(actorID),
		logger.WithCommentID(commentID),
		zap.Int("removed", result.Removed),
	)
	return result, nil
}

// subtree returns root's id followed by every descendant, breadth first
func subtree(tx *gorm.DB, root models.Comment) ([]string, error) {
	var rows []models.Comment
	err := tx.Select("id", "parent_id").
		Where("post_id = ? AND parent_id IS NOT NULL", root.PostID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}

	children := make(map[string][]string, len(rows))
	for _, r := range rows {
		children[*r.ParentID] = append(children[*r.ParentID], r.ID)
	}

	ids := []string{root.ID}
	seen := map[string]bool{root.ID: true}
	for head := 0; head < len(ids); head++ {
		for _, child := range children[ids[head]] {
			if !seen[child] {
				seen[child] = true
				ids = append(ids, child)
			}
		}
	}
	return ids, nil
}

// deleteComments removes likes on the given comments, then the comments.
// Descendants go first so no row is left pointing at a deleted parent.
func deleteComments(tx *gorm.DB, ids []string) error {
	for end := len(ids); end > 0; end -= deleteChunk {
		start := end - deleteChunk
		if start < 0 {
			start = 0
		}
		chunk := ids[start:end]

		if err := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, chunk).
			Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if err := tx.Where("id IN ?", chunk).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
	}
	return nil
}

func postExists(tx *gorm.DB, viewerID, postID string, lock bool) error {
	if !validID(postID) {
		return ErrPostNotFound
	}
	q := tx.Table("posts").Scopes(models.VisibleTo(viewerID)).Where("id = ?", postID)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if len(ids) == 0 {
		return ErrPostNotFound
	}
	return nil
}

func lockPost(tx *gorm.DB, postID string) error {
	var ids []string
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Table("posts").
		Where("id = ?", postID).
		Pluck("id", &ids).Error
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
