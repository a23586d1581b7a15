package util

import (
	stderrors "errors"

	"github.com/zfogg/circle/internal/comments"
	"github.com/zfogg/circle/internal/errors"
	"github.com/zfogg/circle/internal/posts"
	"github.com/zfogg/circle/internal/repository"
	"github.com/zfogg/circle/internal/social"
)

// APIErrorFor translates an error returned by a service into the API error
// a client sees. The service error stays reachable through Unwrap.
func APIErrorFor(err error) *errors.APIError {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return mapServiceError(err).WithCause(err)
}

func mapServiceError(err error) *errors.APIError {
	var verr *posts.ValidationError
	if stderrors.As(err, &verr) {
		return errors.ValidationError(verr.Field, verr.Message)
	}

	switch {
	case stderrors.Is(err, social.ErrUnauthorized),
		stderrors.Is(err, comments.ErrUnauthorized),
		stderrors.Is(err, posts.ErrUnauthorized):
		return errors.Unauthorized("user not authenticated")

	case stderrors.Is(err, social.ErrInvalidTarget):
		return errors.InvalidTarget(err.Error())

	case stderrors.Is(err, social.ErrTargetNotFound):
		return errors.NotFound("target")
	case stderrors.Is(err, comments.ErrPostNotFound),
		stderrors.Is(err, posts.ErrPostNotFound):
		return errors.NotFound("post")
	case stderrors.Is(err, comments.ErrCommentNotFound):
		return errors.NotFound("comment")
	case stderrors.Is(err, repository.ErrUserNotFound):
		return errors.NotFound("user")

	case stderrors.Is(err, comments.ErrForbidden),
		stderrors.Is(err, posts.ErrForbidden):
		return errors.Forbidden(err.Error())

	case stderrors.Is(err, social.ErrConflict):
		return errors.Conflict("concurrent update, please retry")
	case stderrors.Is(err, repository.ErrDuplicateUser):
		return errors.Conflict(err.Error())

	case stderrors.Is(err, comments.ErrEmptyContent),
		stderrors.Is(err, comments.ErrContentTooLong):
		return errors.ValidationError("content", err.Error())
	case stderrors.Is(err, comments.ErrInvalidParent):
		return errors.ValidationError("parent_id", err.Error())
	case stderrors.Is(err, repository.ErrInvalidInput):
		return errors.ValidationError("", err.Error())
	}

	return errors.InternalError("internal server error").WithDetails(err.Error())
}
