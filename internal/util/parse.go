package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/database"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// Pagination reads ?limit= and ?offset= with the database defaults and bounds
func Pagination(c *gin.Context) (limit, offset int) {
	limit = ParseInt(c.Query("limit"), database.DefaultPageSize)
	if limit <= 0 {
		limit = database.DefaultPageSize
	}
	if limit > database.MaxPageSize {
		limit = database.MaxPageSize
	}
	offset = ParseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
