package models

import (
	"time"

	"gorm.io/datatypes"
)

// Chat is the conversation between one patient and one doctor.
type Chat struct {
	BaseModel
	PatientID     string     `gorm:"size:36;not null;index:idx_chats_pair,priority:1" json:"patientId"`
	DoctorID      string     `gorm:"size:36;not null;index:idx_chats_pair,priority:2" json:"doctorId"`
	AppointmentID *string    `gorm:"size:36" json:"appointmentId,omitempty"`
	LastMessage   string     `gorm:"type:text" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `gorm:"index" json:"lastMessageTime,omitempty"`
	UnreadPatient int        `gorm:"default:0" json:"unreadPatient"`
	UnreadDoctor  int        `gorm:"default:0" json:"unreadDoctor"`

	// Relations
	Patient  *User         `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor   *User         `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Messages []ChatMessage `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

// IsParticipant reports whether userID takes part in the chat.
func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.PatientID || userID == c.DoctorID)
}

// Counterpart returns the other participant of the chat.
func (c *Chat) Counterpart(userID string) string {
	if userID == c.PatientID {
		return c.DoctorID
	}
	return c.PatientID
}

// ChatMessage is a single message inside a chat.
type ChatMessage struct {
	BaseModel
	ChatID      string                     `gorm:"size:36;index;not null" json:"chatId"`
	SenderID    string                     `gorm:"size:36;index;not null" json:"senderId"`
	Content     string                     `gorm:"type:text;not null" json:"content"`
	Read        bool                       `gorm:"default:false" json:"read"`
	Attachments datatypes.JSONSlice[string] `json:"attachments,omitempty"`
}
