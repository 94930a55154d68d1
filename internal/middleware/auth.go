package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/config"
	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		role, ok := models.ParseRole(string(claims.Role))
		if !ok || claims.UserID == "" {
			utils.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		SetIdentity(c, claims.UserID, role)
		c.Next()
	}
}

// SetIdentity stores the authenticated caller for downstream handlers.
func SetIdentity(c *gin.Context, userID string, role models.Role) {
	c.Set(ctxUserID, userID)
	c.Set(ctxUserRole, role)
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "User role not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// GetUserIDFromContext returns the authenticated user id.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok && idStr != ""
}

// GetUserRoleFromContext returns the authenticated user role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}
