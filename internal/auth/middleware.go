package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsContextKey = "auth.claims"

// AgentFromContext returns the authenticated agent id set by the middleware.
func AgentFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return "", false
	}
	claims, ok := v.(Claims)
	if !ok {
		return "", false
	}
	return claims.AgentID, true
}

// Middleware requires a live bearer token on mutating API routes when enabled.
// Registration stays open so agents can obtain their first token; reads and
// operational endpoints stay open in both modes.
func Middleware(svc *Service, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || !guarded(c.Request.Method, c.FullPath()) {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "missing bearer token",
			})
			return
		}
		claims, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "invalid token",
			})
			return
		}
		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func guarded(method, fullPath string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	if !strings.HasPrefix(fullPath, "/api/") {
		return false
	}
	return fullPath != "/api/v1/agents/register"
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
