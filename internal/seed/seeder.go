// Package seed fills a database with fake users, posts and relationships.
// Every relationship goes through the same services the API uses, so
// seeded counters are consistent with their rows.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/circle/internal/comments"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/posts"
	"github.com/zfogg/circle/internal/repository"
	"github.com/zfogg/circle/internal/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmailDomain marks seeded accounts so Clean can find them
const EmailDomain = "seed.circle.dev"

// Options sizes a seeding run
type Options struct {
	Users           int
	PostsPerUser    int
	FollowsPerUser  int
	LikesPerUser    int
	CommentsPerPost int
	// Seed makes a run reproducible; zero picks a random seed
	Seed uint64
}

// DevOptions is a dataset large enough to click around in
func DevOptions() Options {
	return Options{Users: 50, PostsPerUser: 4, FollowsPerUser: 10, LikesPerUser: 20, CommentsPerPost: 3}
}

// TestOptions is a small deterministic dataset
func TestOptions() Options {
	return Options{Users: 5, PostsPerUser: 2, FollowsPerUser: 2, LikesPerUser: 3, CommentsPerPost: 2, Seed: 42}
}

// Summary counts what a run created
type Summary struct {
	Users     int `json:"users"`
	Posts     int `json:"posts"`
	Follows   int `json:"follows"`
	Likes     int `json:"likes"`
	Bookmarks int `json:"bookmarks"`
	Comments  int `json:"comments"`
}

// Seeder handles database seeding operations
type Seeder struct {
	db       *gorm.DB
	faker    *gofakeit.Faker
	users    repository.UserRepository
	posts    *posts.Service
	comments *comments.Service
	engine   *social.Engine
}

// NewSeeder creates a seeder writing to db. A nil m uses the global metrics.
func NewSeeder(db *gorm.DB, m *metrics.Metrics) *Seeder {
	if m == nil {
		m = metrics.Get()
	}
	return &Seeder{
		db:       db,
		faker:    gofakeit.New(0),
		users:    repository.NewUserRepository(db),
		posts:    posts.NewService(db),
		comments: comments.NewService(db, m),
		engine:   social.NewEngine(db, social.WithMetrics(m)),
	}
}

// Run creates users, then their posts, then follows, likes, bookmarks and
// comments between them
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	s.faker = gofakeit.New(opts.Seed)

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return sum, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)

	logger.Log.Info("Creating posts...", zap.Int("per_user", opts.PostsPerUser))
	postIDs, err := s.seedPosts(ctx, users, opts.PostsPerUser)
	if err != nil {
		return sum, fmt.Errorf("failed to seed posts: %w", err)
	}
	sum.Posts = len(postIDs)

	logger.Log.Info("Creating follows...")
	if sum.Follows, err = s.seedFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return sum, fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating likes and bookmarks...")
	if sum.Likes, sum.Bookmarks, err = s.seedLikes(ctx, users, postIDs, opts.LikesPerUser); err != nil {
		return sum, fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if sum.Comments, err = s.seedComments(ctx, users, postIDs, opts.CommentsPerPost); err != nil {
		return sum, fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", sum.Users),
		zap.Int("posts", sum.Posts),
		zap.Int("follows", sum.Follows),
		zap.Int("likes", sum.Likes),
		zap.Int("bookmarks", sum.Bookmarks),
		zap.Int("comments", sum.Comments),
	)
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		nickname := fmt.Sprintf("%s_%d", strings.ToLower(s.faker.Username()), i)
		user := &models.User{
			Email:     nickname + "@" + EmailDomain,
			Nickname:  nickname,
			AvatarURL: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", nickname),
			Signature: s.faker.HipsterSentence(),
			Bio:       s.faker.HipsterSentence(),
			Gender:    s.faker.RandomString([]string{models.GenderMale, models.GenderFemale, models.GenderOther}),
			Location:  fmt.Sprintf("%s, %s", s.faker.City(), s.faker.Country()),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", nickname, err)
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []string, perUser int) ([]string, error) {
	var ids []string
	for _, userID := range users {
		for i := 0; i < perUser; i++ {
			post, err := s.posts.Create(ctx, userID, posts.CreateInput{
				Title:   s.faker.HipsterSentence(),
				Content: s.faker.HipsterSentence() + " " + s.faker.HipsterSentence(),
			})
			if err != nil {
				return nil, err
			}
			ids = append(ids, post.ID)
		}
	}
	return ids, nil
}

// pick returns up to k distinct indexes of [0, n) other than skip, starting
// at a random offset
func (s *Seeder) pick(n, k, skip int) []int {
	if n == 0 {
		return nil
	}
	start := s.faker.Number(0, n-1)
	out := make([]int, 0, k)
	for j := 0; j < n && len(out) < k; j++ {
		idx := (start + j) % n
		if idx != skip {
			out = append(out, idx)
		}
	}
	return out
}

func (s *Seeder) seedFollows(ctx context.Context, users []string, perUser int) (int, error) {
	created := 0
	for i, actorID := range users {
		for _, j := range s.pick(len(users), perUser, i) {
			if _, err := s.engine.Toggle(ctx, actorID, social.UserTarget(users[j]), social.Follow); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) seedLikes(ctx context.Context, users, postIDs []string, perUser int) (likes, bookmarks int, err error) {
	for _, actorID := range users {
		for n, j := range s.pick(len(postIDs), perUser, -1) {
			target := social.PostTarget(postIDs[j])
			if _, err = s.engine.Toggle(ctx, actorID, target, social.Like); err != nil {
				return likes, bookmarks, err
			}
			likes++

			if n%3 == 0 {
				if _, err = s.engine.Toggle(ctx, actorID, target, social.Bookmark); err != nil {
					return likes, bookmarks, err
				}
				bookmarks++
			}
		}
	}
	return likes, bookmarks, nil
}

func (s *Seeder) seedComments(ctx context.Context, users, postIDs []string, perPost int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	created := 0
	for _, postID := range postIDs {
		var thread []string
		for i := 0; i < perPost; i++ {
			authorID := users[s.faker.Number(0, len(users)-1)]

			// Roughly half the comments reply to an earlier one
			var parentID *string
			if len(thread) > 0 && s.faker.Bool() {
				parent := thread[s.faker.Number(0, len(thread)-1)]
				parentID = &parent
			}

			comment, err := s.comments.Create(ctx, authorID, postID, parentID, s.faker.HipsterSentence())
			if err != nil {
				return created, err
			}
			thread = append(thread, comment.ID)
			created++
		}
	}
	return created, nil
}

// Clean removes every seeded account together with its content. Follows,
// likes and bookmarks are toggled off through the engine so other users'
// counters stay correct. Shares are append-only and leave with the account
// row, so shares_count needs a counter repair afterwards.
func (s *Seeder) Clean(ctx context.Context) (int, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email LIKE ?", "%@"+EmailDomain).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find seeded users: %w", err)
	}

	for _, userID := range ids {
		if err := s.unwind(ctx, userID); err != nil {
			return 0, fmt.Errorf("clean user %s: %w", userID, err)
		}
	}

	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&models.User{}).Error; err != nil {
			return 0, fmt.Errorf("delete seeded users: %w", err)
		}
	}
	logger.Log.Info("Seed data cleaned", zap.Int("users", len(ids)))
	return len(ids), nil
}

// unwind reverses a user's relationships and removes their content
func (s *Seeder) unwind(ctx context.Context, userID string) error {
	db := s.db.WithContext(ctx)

	var postIDs []string
	if err := db.Model(&models.Post{}).Where("author_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
		return err
	}
	for _, postID := range postIDs {
		if err := s.posts.Delete(ctx, userID, postID); err != nil {
			return err
		}
	}

	var follows []models.Follow
	if err := db.Where("follower_id = ?", userID).Find(&follows).Error; err != nil {
		return err
	}
	for _, f := range follows {
		if _, err := s.engine.Toggle(ctx, userID, social.UserTarget(f.FollowingID), social.Follow); err != nil {
			return err
		}
	}

	var followers []models.Follow
	if err := db.Where("following_id = ?", userID).Find(&followers).Error; err != nil {
		return err
	}
	for _, f := range followers {
		if _, err := s.engine.Toggle(ctx, f.FollowerID, social.UserTarget(userID), social.Follow); err != nil {
			return err
		}
	}

	var likes []models.Like
	if err := db.Where("user_id = ?", userID).Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		target := social.Target{Type: l.TargetType, ID: l.TargetID}
		_, err := s.engine.Toggle(ctx, userID, target, social.Like)
		if errors.Is(err, social.ErrTargetNotFound) {
			// Dangling like; nothing counts it
			err = db.Delete(&models.Like{}, "id = ?", l.ID).Error
		}
		if err != nil {
			return err
		}
	}

	var bookmarks []models.Bookmark
	if err := db.Where("user_id = ?", userID).Find(&bookmarks).Error; err != nil {
		return err
	}
	for _, b := range bookmarks {
		if _, err := s.engine.Toggle(ctx, userID, social.PostTarget(b.PostID), social.Bookmark); err != nil {
			return err
		}
	}

	// Top-level comments take their replies with them
	var commentIDs []string
	if err := db.Model(&models.Comment{}).
		Where("author_id = ?", userID).
		Order("created_at ASC").
		Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	for _, id := range commentIDs {
		if _, err := s.comments.Delete(ctx, userID, id); err != nil && !errors.Is(err, comments.ErrCommentNotFound) {
			return err
		}
	}
	return nil
}
