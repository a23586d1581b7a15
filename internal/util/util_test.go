package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/circle/internal/comments"
	apierrors "github.com/zfogg/circle/internal/errors"
	"github.com/zfogg/circle/internal/posts"
	"github.com/zfogg/circle/internal/social"
)

func TestAPIErrorFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apierrors.ErrorCode
	}{
		{"unauthorized", social.ErrUnauthorized, http.StatusUnauthorized, apierrors.ErrUnauthorized},
		{"invalid target", fmt.Errorf("%w: cannot follow yourself", social.ErrInvalidTarget), http.StatusBadRequest, apierrors.ErrInvalidTarget},
		{"target not found", fmt.Errorf("%w: post:x", social.ErrTargetNotFound), http.StatusNotFound, apierrors.ErrNotFound},
		{"post not found", posts.ErrPostNotFound, http.StatusNotFound, apierrors.ErrNotFound},
		{"comment not found", comments.ErrCommentNotFound, http.StatusNotFound, apierrors.ErrNotFound},
		{"forbidden", comments.ErrForbidden, http.StatusForbidden, apierrors.ErrForbidden},
		{"conflict", social.ErrConflict, http.StatusConflict, apierrors.ErrConflict},
		{"empty comment", comments.ErrEmptyContent, http.StatusUnprocessableEntity, apierrors.ErrValidation},
		{"bad parent", comments.ErrInvalidParent, http.StatusUnprocessableEntity, apierrors.ErrValidation},
		{"post validation", &posts.ValidationError{Field: "title", Message: "title is required"}, http.StatusUnprocessableEntity, apierrors.ErrValidation},
		{"api error passthrough", apierrors.RateLimited(""), http.StatusTooManyRequests, apierrors.ErrRateLimited},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, apierrors.ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := APIErrorFor(tt.err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}
}

func TestRespondWithError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithError(c, fmt.Errorf("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Empty(t, body.Details)
	assert.True(t, c.IsAborted())
}

func TestRespondWithError_ValidationField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondWithError(c, &posts.ValidationError{Field: "images", Message: "at most 9 images"})

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "images", body.Field)
	assert.False(t, body.Retryable)
}

func TestRespondWithError_ConflictIsRetryable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondWithError(c, social.ErrConflict)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", body.Code)
	assert.True(t, body.Retryable)
}

func TestGetUserIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextUserID, "u1")
	id, ok := GetUserIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=1000", 100, 0},
		{"?limit=-3&offset=-1", 20, 0},
		{"?limit=abc", 20, 0},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		limit, offset := Pagination(c)
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}
