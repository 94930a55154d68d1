package handlers

import (
	"github.com/gin-gonic/gin"

	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

// caller returns the authenticated user id and role, or writes a 401.
func caller(c *gin.Context) (string, models.Role, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return "", "", false
	}
	role, _ := middleware.GetUserRoleFromContext(c)
	return userID, role, true
}
