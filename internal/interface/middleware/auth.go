package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storelabs/storefront/pkg/apperr"
	"github.com/storelabs/storefront/pkg/helpers"
	"github.com/storelabs/storefront/pkg/response"
)

// Context keys set by Auth on success.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUserRole  = "userRole"
)

// Auth validates the access token from the accessToken cookie or a bearer
// Authorization header and injects the caller's identity into the context.
// Expired and malformed tokens both map to unauthorized at this boundary.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFrom(c)
		if token == "" {
			response.AbortError(c, apperr.Unauthorized("missing access token"))
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			if errors.Is(err, helpers.ErrTokenExpired) {
				response.AbortError(c, apperr.Unauthorized("access token expired"))
				return
			}
			response.AbortError(c, apperr.Unauthorized("invalid access token"))
			return
		}
		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUserEmail, claims.Email)
		c.Set(CtxUserRole, claims.Role)
		c.Next()
	}
}

// RequireRole guards admin endpoints. Must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserRole) != role {
			response.AbortError(c, apperr.Forbidden())
			return
		}
		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(helpers.AccessCookie); err == nil && token != "" {
		return token
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
