package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Context keys for the caller identity
const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
)

// MaxPrincipalLength bounds the identity headers before they reach logs and spans.
const MaxPrincipalLength = 128

// Principal reads the caller identity forwarded by the gateway. The identity is
// trusted as given; authentication happens upstream of this service.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := sanitizePrincipal(c.GetHeader(HeaderUserID))
		role := sanitizePrincipal(c.GetHeader(HeaderUserRole))
		if userID != "" {
			c.Set(UserIDKey, userID)
			c.Set(UserRoleKey, role)
			c.Request = c.Request.WithContext(logger.WithPrincipal(c.Request.Context(), userID, role))
		}
		c.Next()
	}
}

// RequirePrincipal rejects requests that do not name a caller
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"X-User-ID header is required",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// GetUserID returns the caller id set by Principal
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUserRole returns the caller role set by Principal
func GetUserRole(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}

func sanitizePrincipal(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > MaxPrincipalLength {
		v = v[:MaxPrincipalLength]
	}
	return v
}
