package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/shared/server/respond"
)

const (
	tenantIDKey = "tenantId"
	userIDKey   = "userId"
)

// Tenant resolves the caller's tenant identity and stores it in context.
// Identity is established upstream by the auth gateway; this service trusts
// the forwarded headers and only enforces their presence.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		tenantID := strings.TrimSpace(c.GetHeader("X-Tenant-Id"))
		if tenantID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing tenant identity", nil)
			return
		}
		c.Set(tenantIDKey, tenantID)

		if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
			c.Set(userIDKey, userID)
		}

		c.Next()
	}
}

// TenantIDFromContext returns the tenant ID stored by Tenant middleware.
func TenantIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(tenantIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserIDFromContext returns the user ID stored by Tenant middleware, if any.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
