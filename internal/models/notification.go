package models

// NotificationCategory groups notifications in the client.
type NotificationCategory string

const (
	CategoryAppointment NotificationCategory = "appointment"
	CategoryReminder    NotificationCategory = "reminder"
	CategoryMessage     NotificationCategory = "message"
	CategorySystem      NotificationCategory = "system"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	BaseModel
	UserID   string               `gorm:"size:36;not null;index:idx_notifications_user_read,priority:1" json:"userId"`
	Title    string               `gorm:"size:255;not null" json:"title"`
	Message  string               `gorm:"type:text;not null" json:"message"`
	Category NotificationCategory `gorm:"size:20;default:'system'" json:"type"`
	Read     bool                 `gorm:"default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	Link     string               `gorm:"size:255" json:"link,omitempty"`

	AppointmentID *string `gorm:"size:36;index" json:"appointmentId,omitempty"`
}
