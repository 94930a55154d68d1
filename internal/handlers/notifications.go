package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

const notificationPageSize = 50

// NotificationHandler serves the caller's in-app notifications.
type NotificationHandler struct {
	DB *gorm.DB
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// NotificationList is the body of GET /notifications.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

// GetNotifications handles GET /notifications: the latest notifications and
// the number of unread ones.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	out := NotificationList{Notifications: []models.Notification{}}
	if err := h.DB.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(notificationPageSize).
		Find(&out.Notifications).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Count(&out.UnreadCount).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Notifications fetched successfully", out)
}

// MarkAsRead handles PUT /notifications/:notificationId/read. Unknown ids
// are ignored.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	res := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Param("notificationId"), userID).
		Update("read", true)
	if res.Error != nil {
		utils.RespondError(c, res.Error)
		return
	}
	utils.Success(c, "Notification marked as read", nil)
}

// MarkAllAsRead handles PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Update("read", true).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "All notifications marked as read", nil)
}

// DeleteNotification handles DELETE /notifications/:notificationId.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	res := h.DB.Where("id = ? AND user_id = ?", c.Param("notificationId"), userID).Delete(&models.Notification{})
	if res.Error != nil {
		utils.RespondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Notification not found")
		return
	}
	utils.Success(c, "Notification deleted", nil)
}
