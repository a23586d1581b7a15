package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/errors"
	"github.com/zfogg/circle/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.Request.URL.Path),
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		fields = append(fields, logger.WithRequestID(requestID))
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}

	if apiErr.Status >= http.StatusInternalServerError {
		if apiErr.Details != "" {
			fields = append(fields, zap.String("details", apiErr.Details))
		}
		if cause := apiErr.Unwrap(); cause != nil {
			fields = append(fields, zap.Error(cause))
		}
		logger.Log.Error("API error", append(fields, logger.WithStatus(apiErr.Status))...)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error", fields...)
	}

	response := ErrorResponse{
		Code:      string(apiErr.Code),
		Message:   apiErr.Message,
		Field:     apiErr.Field,
		Retryable: apiErr.Retryable(),
	}
	// Internal details never leave the server
	if apiErr.Status < http.StatusInternalServerError {
		response.Details = apiErr.Details
	}
	c.AbortWithStatusJSON(apiErr.Status, response)
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "bad request"
	}
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondWithError maps a service error onto its API error and sends it
func RespondWithError(c *gin.Context, err error) {
	RespondWithAPIError(c, APIErrorFor(err))
}
