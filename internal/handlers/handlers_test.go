package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/circle/internal/database"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/models"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the API end to end against in-memory SQLite
type HandlersTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine

	alice *models.User
	bob   *models.User
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) SetupTest() {
	suite.db = database.NewTestDB(suite.T())
	h := NewHandlers(suite.db, metrics.NewForRegistry(prometheus.NewRegistry()))

	// Mock auth middleware that sets user_id from header
	authMiddleware := func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
	optionalAuth := func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	h.RegisterOps(suite.router)
	h.RegisterRoutes(suite.router, Middlewares{Auth: authMiddleware, OptionalAuth: optionalAuth})

	suite.alice = &models.User{Email: "alice@example.com", Nickname: "alice"}
	suite.bob = &models.User{Email: "bob@example.com", Nickname: "bob"}
	suite.Require().NoError(suite.db.Create(suite.alice).Error)
	suite.Require().NoError(suite.db.Create(suite.bob).Error)
}

func (suite *HandlersTestSuite) request(method, path, userID string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (suite *HandlersTestSuite) createPost(userID, title string) string {
	w, body := suite.request(http.MethodPost, "/api/v1/posts", userID, gin.H{"title": title, "content": "body"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return body["post"].(map[string]any)["id"].(string)
}

func (suite *HandlersTestSuite) TestHealth() {
	w, body := suite.request(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("ok", body["status"])
}

func (suite *HandlersTestSuite) TestToggleFollow() {
	path := "/api/v1/users/" + suite.bob.ID + "/follow"

	w, body := suite.request(http.MethodPost, path, suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("followed", body["status"])
	suite.Equal(true, body["active"])
	suite.Equal(1.0, body["count"])
	suite.Equal(1.0, body["counts"].(map[string]any)["following_count"])

	w, body = suite.request(http.MethodGet, "/api/v1/users/"+suite.bob.ID, suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(true, body["is_following"])
	suite.Equal(1.0, body["user"].(map[string]any)["followers_count"])

	w, body = suite.request(http.MethodGet, "/api/v1/users/"+suite.bob.ID+"/followers", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	followers := body["followers"].([]any)
	suite.Require().Len(followers, 1)
	suite.Equal("alice", followers[0].(map[string]any)["nickname"])

	w, body = suite.request(http.MethodPost, path, suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("unfollowed", body["status"])
	suite.Equal(0.0, body["count"])
}

func (suite *HandlersTestSuite) TestToggleFollow_Errors() {
	w, body := suite.request(http.MethodPost, "/api/v1/users/"+suite.alice.ID+"/follow", suite.alice.ID, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_TARGET", body["code"])

	w, _ = suite.request(http.MethodPost, "/api/v1/users/"+uuid.NewString()+"/follow", suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, _ = suite.request(http.MethodPost, "/api/v1/users/"+suite.bob.ID+"/follow", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w, _ = suite.request(http.MethodPost, "/api/v1/users/"+suite.bob.ID+"/follow", uuid.NewString(), nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestUserProfile() {
	w, body := suite.request(http.MethodGet, "/api/v1/users/"+suite.alice.ID, suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(true, body["is_own_profile"])
	suite.Equal(false, body["is_following"])
	suite.NotContains(body["user"].(map[string]any), "email")

	w, _ = suite.request(http.MethodGet, "/api/v1/users/"+uuid.NewString(), "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	suite.createPost(suite.bob.ID, "counted")
	w, body = suite.request(http.MethodGet, "/api/v1/users/"+strings.ToUpper(suite.bob.ID), suite.bob.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(true, body["is_own_profile"])
	profile := body["user"].(map[string]any)
	suite.Equal(suite.bob.ID, profile["id"])
	suite.Equal(1.0, profile["posts_count"])
	suite.Equal(0.0, profile["following_count"])

	w, body = suite.request(http.MethodPut, "/api/v1/users/me", suite.alice.ID, gin.H{"bio": "hello"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("hello", body["user"].(map[string]any)["bio"])

	w, body = suite.request(http.MethodGet, "/api/v1/users/me", suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("alice@example.com", body["user"].(map[string]any)["email"])
}

func (suite *HandlersTestSuite) TestPostLifecycle() {
	postID := suite.createPost(suite.bob.ID, "hello")
	base := "/api/v1/posts/" + postID

	w, body := suite.request(http.MethodPost, base+"/like", suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("liked", body["status"])
	suite.Equal(1.0, body["count"])

	w, body = suite.request(http.MethodPost, base+"/bookmark", suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("bookmarked", body["status"])

	w, body = suite.request(http.MethodPost, base+"/share", suite.alice.ID, gin.H{"platform": "wechat"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("shared", body["status"])

	w, body = suite.request(http.MethodPost, base+"/share", suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(2.0, body["count"])

	w, body = suite.request(http.MethodPost, base+"/view", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(1.0, body["views_count"])

	w, body = suite.request(http.MethodGet, base, suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(true, body["is_liked"])
	suite.Equal(true, body["is_bookmarked"])
	post := body["post"].(map[string]any)
	suite.Equal(1.0, post["likes_count"])
	suite.Equal(1.0, post["bookmarks_count"])
	suite.Equal(2.0, post["shares_count"])

	w, body = suite.request(http.MethodGet, base, suite.bob.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(false, body["is_liked"])

	w, body = suite.request(http.MethodGet, "/api/v1/users/me/bookmarks", suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(body["posts"].([]any), 1)

	w, _ = suite.request(http.MethodDelete, base, suite.alice.ID, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.request(http.MethodDelete, base, suite.bob.ID, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	w, _ = suite.request(http.MethodGet, base, suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, _ = suite.request(http.MethodPost, base+"/like", suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	var bob models.User
	suite.Require().NoError(suite.db.First(&bob, "id = ?", suite.bob.ID).Error)
	suite.Equal(0, bob.PostsCount)
}

func (suite *HandlersTestSuite) TestCreatePost_Validation() {
	w, body := suite.request(http.MethodPost, "/api/v1/posts", suite.alice.ID, gin.H{"content": "no title"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("title", body["field"])

	w, _ = suite.request(http.MethodPost, "/api/v1/posts", "", gin.H{"title": "t", "content": "c"})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestDraftsHiddenFromOthers() {
	w, body := suite.request(http.MethodPost, "/api/v1/posts", suite.bob.ID,
		gin.H{"title": "wip", "content": "c", "status": "draft"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	postID := body["post"].(map[string]any)["id"].(string)

	w, _ = suite.request(http.MethodGet, "/api/v1/posts/"+postID, suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, _ = suite.request(http.MethodGet, "/api/v1/posts/"+postID, suite.bob.ID, nil)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.request(http.MethodPost, "/api/v1/posts/"+postID+"/like", suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	w, _ = suite.request(http.MethodPost, "/api/v1/posts/"+postID+"/comments", suite.alice.ID, gin.H{"content": "hi"})
	suite.Equal(http.StatusNotFound, w.Code)
	w, _ = suite.request(http.MethodGet, "/api/v1/posts/"+postID+"/comments", suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	w, _ = suite.request(http.MethodGet, "/api/v1/posts/"+postID+"/comments", suite.bob.ID, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestComments() {
	postID := suite.createPost(suite.bob.ID, "thread")
	commentsPath := "/api/v1/posts/" + postID + "/comments"

	w, body := suite.request(http.MethodPost, commentsPath, suite.alice.ID, gin.H{"content": "first"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	topID := body["comment"].(map[string]any)["id"].(string)

	w, _ = suite.request(http.MethodPost, commentsPath, suite.bob.ID, gin.H{"content": "reply", "parent_id": topID})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w, body = suite.request(http.MethodGet, commentsPath, "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(2.0, body["total"])
	roots := body["comments"].([]any)
	suite.Require().Len(roots, 1)
	suite.Len(roots[0].(map[string]any)["replies"].([]any), 1)

	w, body = suite.request(http.MethodPost, "/api/v1/comments/"+topID+"/like", suite.bob.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("liked", body["status"])

	w, body = suite.request(http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(1.0, body["post"].(map[string]any)["comments_count"])

	w, _ = suite.request(http.MethodDelete, "/api/v1/comments/"+topID, suite.bob.ID, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w, body = suite.request(http.MethodDelete, "/api/v1/comments/"+topID, suite.alice.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(2.0, body["removed"])
	suite.Equal(0.0, body["comments_count"])

	var likes int64
	suite.Require().NoError(suite.db.Model(&models.Like{}).Count(&likes).Error)
	suite.Zero(likes)
}

func (suite *HandlersTestSuite) TestComments_Errors() {
	postID := suite.createPost(suite.bob.ID, "thread")
	commentsPath := "/api/v1/posts/" + postID + "/comments"

	w, body := suite.request(http.MethodPost, commentsPath, suite.alice.ID, gin.H{"content": "   "})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("content", body["field"])

	w, body = suite.request(http.MethodPost, commentsPath, suite.alice.ID, gin.H{"content": "x", "parent_id": uuid.NewString()})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("parent_id", body["field"])

	w, _ = suite.request(http.MethodGet, "/api/v1/posts/"+uuid.NewString()+"/comments", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, _ = suite.request(http.MethodDelete, "/api/v1/comments/"+uuid.NewString(), suite.alice.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}
