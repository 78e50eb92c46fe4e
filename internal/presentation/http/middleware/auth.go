package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/tillpoint/internal/presentation/http/dto/response"
	"github.com/sangkips/tillpoint/pkg/utils"
)

// Context keys set by AuthMiddleware
const (
	TerminalIDKey = "terminal_id"
	RolesKey      = "terminal_roles"
)

// AuthMiddleware creates a JWT authentication middleware for till terminals
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(TerminalIDKey, claims.TerminalID)
		c.Set(RolesKey, claims.Roles)
		c.Next()
	}
}

// bearerToken reads "Bearer <token>" from the Authorization header. Browsers cannot
// set headers on a websocket upgrade, so the token query parameter is accepted too.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// RequireRole creates a middleware that requires one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, have := range GetRoles(c) {
			for _, want := range roles {
				if have == want {
					c.Next()
					return
				}
			}
		}
		response.Forbidden(c, "Insufficient role privileges")
		c.Abort()
	}
}

// GetTerminalID returns the authenticated terminal, or "" when unauthenticated
func GetTerminalID(c *gin.Context) string {
	return c.GetString(TerminalIDKey)
}

// GetRoles returns the roles of the authenticated terminal
func GetRoles(c *gin.Context) []string {
	return c.GetStringSlice(RolesKey)
}
