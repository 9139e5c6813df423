package app

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"studio-booking/internal/config"
)

// AdminAuthMiddleware guards operator endpoints with either an HMAC-signed
// JWT or one of the configured static tokens. Customers never pass through
// it.
func AdminAuthMiddleware(auth config.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization", "code": "UNAUTHORIZED"})
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization format", "code": "UNAUTHORIZED"})
			return
		}
		tokenStr := parts[1]

		if auth.JWTSecret != "" {
			_, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return []byte(auth.JWTSecret), nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithLeeway(5*time.Second))
			if err == nil {
				c.Next()
				return
			}
		}

		for _, t := range auth.StaticTokens {
			if subtle.ConstantTimeCompare([]byte(tokenStr), []byte(t)) == 1 {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token", "code": "UNAUTHORIZED"})
	}
}
