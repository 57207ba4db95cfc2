package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gatechat/internal/auth"
)

const (
	UserIDKey = "userID"
	ClaimsKey = "claims"
)

// AuthMiddleware validates a user token from the Authorization header or the session cookie.
func AuthMiddleware(tokens *auth.TokenManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil || claims.Role != auth.RoleUser {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// AdminMiddleware admits only tokens that isAdmin accepts.
func AdminMiddleware(tokens *auth.TokenManager, cookieName string, isAdmin func(*auth.Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if !isAdmin(claims) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
