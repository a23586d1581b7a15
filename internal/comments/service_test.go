package comments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/models"
	"gorm.io/gorm"
)

type ServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
	ctx     context.Context

	author *models.User
	other  *models.User
	post   *models.Post
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.service = NewService(s.db, metrics.NewForRegistry(prometheus.NewRegistry()))
	s.ctx = context.Background()

	s.author = &models.User{Email: "author@example.com", Nickname: "author"}
	s.other = &models.User{Email: "other@example.com", Nickname: "other"}
	s.Require().NoError(s.db.Create(s.author).Error)
	s.Require().NoError(s.db.Create(s.other).Error)

	s.post = &models.Post{AuthorID: s.author.ID, Title: "thread", Content: "body"}
	s.Require().NoError(s.db.Create(s.post).Error)
}

func (s *ServiceTestSuite) commentsCount() int {
	var p models.Post
	s.Require().NoError(s.db.First(&p, "id = ?", s.post.ID).Error)
	return p.CommentsCount
}

func (s *ServiceTestSuite) create(actorID string, parent *models.Comment, content string) *models.Comment {
	var parentID *string
	if parent != nil {
		parentID = &parent.ID
	}
	c, err := s.service.Create(s.ctx, actorID, s.post.ID, parentID, content)
	s.Require().NoError(err)
	return c
}

func (s *ServiceTestSuite) TestCreate_TopLevelAndReply() {
	top := s.create(s.other.ID, nil, "  first!  ")
	s.Equal("first!", top.Content)
	s.True(top.IsTopLevel())
	s.Require().NotNil(top.Author)
	s.Equal("other", top.Author.Nickname)
	s.Equal(1, s.commentsCount())

	reply := s.create(s.author.ID, top, "thanks")
	s.Require().NotNil(reply.ParentID)
	s.Equal(top.ID, *reply.ParentID)

	// Replies do not count
	s.Equal(1, s.commentsCount())
}

func (s *ServiceTestSuite) TestCreate_Validation() {
	_, err := s.service.Create(s.ctx, s.other.ID, s.post.ID, nil, "   ")
	s.ErrorIs(err, ErrEmptyContent)

	_, err = s.service.Create(s.ctx, s.other.ID, s.post.ID, nil, strings.Repeat("x", MaxContentLength+1))
	s.ErrorIs(err, ErrContentTooLong)

	_, err = s.service.Create(s.ctx, "", s.post.ID, nil, "hi")
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.service.Create(s.ctx, s.other.ID, uuid.NewString(), nil, "hi")
	s.ErrorIs(err, ErrPostNotFound)

	missing := uuid.NewString()
	_, err = s.service.Create(s.ctx, s.other.ID, s.post.ID, &missing, "hi")
	s.ErrorIs(err, ErrInvalidParent)

	s.Equal(0, s.commentsCount())
}

func (s *ServiceTestSuite) TestCreate_ParentOnOtherPost() {
	otherPost := &models.Post{AuthorID: s.other.ID, Title: "elsewhere", Content: "body"}
	s.Require().NoError(s.db.Create(otherPost).Error)
	foreign, err := s.service.Create(s.ctx, s.other.ID, otherPost.ID, nil, "there")
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, s.other.ID, s.post.ID, &foreign.ID, "here")
	s.ErrorIs(err, ErrInvalidParent)
}

func (s *ServiceTestSuite) TestDelete_CascadesSubtree() {
	c1 := s.create(s.author.ID, nil, "c1")
	c2 := s.create(s.other.ID, c1, "c2")
	c3 := s.create(s.author.ID, c2, "c3")
	sibling := s.create(s.other.ID, nil, "sibling")
	s.Equal(2, s.commentsCount())

	s.Require().NoError(s.db.Create(&models.Like{UserID: s.other.ID, TargetType: models.TargetComment, TargetID: c2.ID}).Error)
	s.Require().NoError(s.db.Create(&models.Like{UserID: s.other.ID, TargetType: models.TargetComment, TargetID: sibling.ID}).Error)

	res, err := s.service.Delete(s.ctx, s.author.ID, c1.ID)
	s.Require().NoError(err)
	s.Equal(3, res.Removed)
	s.Equal(1, res.CommentsCount)
	s.Equal(1, s.commentsCount())

	var remaining []models.Comment
	s.Require().NoError(s.db.Find(&remaining).Error)
	s.Require().Len(remaining, 1)
	s.Equal(sibling.ID, remaining[0].ID)

	var likes []models.Like
	s.Require().NoError(s.db.Find(&likes).Error)
	s.Require().Len(likes, 1)
	s.Equal(sibling.ID, likes[0].TargetID)

	for _, id := range []string{c2.ID, c3.ID} {
		err := s.db.First(&models.Comment{}, "id = ?", id).Error
		s.ErrorIs(err, gorm.ErrRecordNotFound)
	}
}

func (s *ServiceTestSuite) TestDelete_ReplyKeepsCount() {
	top := s.create(s.other.ID, nil, "top")
	reply := s.create(s.author.ID, top, "reply")
	s.create(s.other.ID, reply, "nested")

	res, err := s.service.Delete(s.ctx, s.author.ID, reply.ID)
	s.Require().NoError(err)
	s.Equal(2, res.Removed)
	s.Equal(1, res.CommentsCount)

	tree, err := s.service.Tree(s.ctx, "", s.post.ID)
	s.Require().NoError(err)
	s.Require().Len(tree, 1)
	s.Empty(tree[0].Replies)
}

func (s *ServiceTestSuite) TestDelete_Forbidden() {
	c := s.create(s.author.ID, nil, "mine")

	_, err := s.service.Delete(s.ctx, s.other.ID, c.ID)
	s.ErrorIs(err, ErrForbidden)
	s.Equal(1, s.commentsCount())

	_, err = s.service.Delete(s.ctx, s.author.ID, uuid.NewString())
	s.ErrorIs(err, ErrCommentNotFound)

	_, err = s.service.Delete(s.ctx, s.author.ID, "garbage")
	s.ErrorIs(err, ErrCommentNotFound)
}

func (s *ServiceTestSuite) TestTree() {
	c1 := s.create(s.author.ID, nil, "c1")
	s.create(s.other.ID, c1, "r1")
	s.create(s.other.ID, nil, "c2")

	tree, err := s.service.Tree(s.ctx, "", s.post.ID)
	s.Require().NoError(err)
	s.Require().Len(tree, 2)
	s.Equal("c1", tree[0].Content)
	s.Require().Len(tree[0].Replies, 1)
	s.Equal("r1", tree[0].Replies[0].Content)
	s.Require().NotNil(tree[0].Replies[0].Author)
	s.Equal("other", tree[0].Replies[0].Author.Nickname)
	s.Equal("c2", tree[1].Content)

	_, err = s.service.Tree(s.ctx, "", uuid.NewString())
	s.ErrorIs(err, ErrPostNotFound)
}

func (s *ServiceTestSuite) TestDraftThreadOnlyForAuthor() {
	s.create(s.author.ID, nil, "note to self")
	s.Require().NoError(s.db.Model(s.post).Update("status", models.PostStatusDraft).Error)

	tree, err := s.service.Tree(s.ctx, s.author.ID, s.post.ID)
	s.Require().NoError(err)
	s.Len(tree, 1)

	_, err = s.service.Tree(s.ctx, s.other.ID, s.post.ID)
	s.ErrorIs(err, ErrPostNotFound)
	_, err = s.service.Tree(s.ctx, "", s.post.ID)
	s.ErrorIs(err, ErrPostNotFound)

	_, err = s.service.Create(s.ctx, s.other.ID, s.post.ID, nil, "sneaky")
	s.ErrorIs(err, ErrPostNotFound)
	s.Equal(1, s.commentsCount())
}
