package util

import (
	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated user id
const ContextUserID = "user_id"

// GetUserIDFromContext extracts the user ID from the Gin context.
// Returns the user ID and true if found, or empty string and false if not authenticated.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userID, true
}

// OptionalUserID returns the authenticated user id, or "" for anonymous requests
func OptionalUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
