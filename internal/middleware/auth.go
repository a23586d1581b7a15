package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/auth"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/util"
	"go.uber.org/zap"
)

// AuthMiddleware requires a valid bearer token and stores its user id under
// util.ContextUserID
func AuthMiddleware(tokens auth.TokenServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			logger.Log.Debug("Token rejected", logger.WithIP(c.ClientIP()), zap.Error(err))
			util.RespondUnauthorized(c, "invalid token")
			return
		}

		c.Set(util.ContextUserID, claims.UserID)
		c.Next()
	}
}

// OptionalAuthMiddleware records the user when a valid token is present and
// lets anonymous requests through
func OptionalAuthMiddleware(tokens auth.TokenServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractBearerToken(c); token != "" {
			if claims, err := tokens.ValidateToken(token); err == nil {
				c.Set(util.ContextUserID, claims.UserID)
			}
		}
		c.Next()
	}
}

// extractBearerToken parses "Authorization: Bearer <token>". The scheme is
// case-insensitive.
func extractBearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
