package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/realtime"
	"medibook-server/internal/utils"
)

const previewLength = 100

// ChatHandler handles patient/doctor conversations.
type ChatHandler struct {
	DB         *gorm.DB
	Realtime   realtime.Publisher
	Dispatcher notify.Dispatcher
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(db *gorm.DB, rt realtime.Publisher, dispatcher notify.Dispatcher) *ChatHandler {
	return &ChatHandler{DB: db, Realtime: rt, Dispatcher: dispatcher}
}

// GetChats handles GET /chats: the caller's chats, most recent activity first.
func (h *ChatHandler) GetChats(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var chats []models.Chat
	err := h.DB.Preload("Patient").Preload("Doctor").
		Where("patient_id = ? OR doctor_id = ?", userID, userID).
		Order("last_message_at desc").Order("updated_at desc").
		Find(&chats).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Chats fetched successfully", chats)
}

// CreateChatRequest represents the request body for opening a chat with a doctor.
type CreateChatRequest struct {
	DoctorID      string `json:"doctorId" binding:"required"`
	AppointmentID string `json:"appointmentId"`
}

// CreateChat handles POST /chats. An existing chat with the same doctor is
// returned instead of creating a second one.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	var req CreateChatRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.Chat
	err := h.DB.Where("patient_id = ? AND doctor_id = ?", patientID, req.DoctorID).First(&existing).Error
	if err == nil {
		utils.Success(c, "Chat already exists", existing)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, err)
		return
	}

	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
			return
		}
		utils.RespondError(c, err)
		return
	}

	chat := models.Chat{PatientID: patientID, DoctorID: doctor.ID}
	if req.AppointmentID != "" {
		chat.AppointmentID = &req.AppointmentID
	}
	if err := h.DB.Omit("Patient", "Doctor", "Messages").Create(&chat).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Chat created", chat)
}

// loadChat fetches a chat the caller takes part in, writing 404 or 403 otherwise.
func (h *ChatHandler) loadChat(c *gin.Context, userID string, withMessages bool) (*models.Chat, bool) {
	q := h.DB.Preload("Patient").Preload("Doctor")
	if withMessages {
		q = q.Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") })
	}

	var chat models.Chat
	if err := q.First(&chat, "id = ?", c.Param("chatId")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Chat not found")
			return nil, false
		}
		utils.RespondError(c, err)
		return nil, false
	}
	if !chat.IsParticipant(userID) {
		utils.Forbidden(c, "Access denied")
		return nil, false
	}
	return &chat, true
}

// GetChat handles GET /chats/:chatId.
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	chat, ok := h.loadChat(c, userID, true)
	if !ok {
		return
	}
	utils.Success(c, "Chat fetched successfully", chat)
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Content     string   `json:"content" binding:"required"`
	Attachments []string `json:"attachments"`
}

// SendMessage handles POST /chats/:chatId/messages. The recipient receives a
// new-message event on their real-time channel.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		utils.BadRequest(c, "Message content cannot be empty")
		return
	}

	chat, ok := h.loadChat(c, userID, false)
	if !ok {
		return
	}

	msg := models.ChatMessage{
		ChatID:      chat.ID,
		SenderID:    userID,
		Content:     content,
		Attachments: req.Attachments,
	}
	if msg.Attachments == nil {
		msg.Attachments = []string{}
	}

	unreadColumn := "unread_patient"
	if userID == chat.PatientID {
		unreadColumn = "unread_doctor"
	}
	now := time.Now().UTC()

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
			"last_message":    preview(content),
			"last_message_at": now,
			unreadColumn:      gorm.Expr(unreadColumn + " + 1"),
		}).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	recipientID := chat.Counterpart(userID)
	ctx := c.Request.Context()
	if err := h.Realtime.Publish(ctx, recipientID, realtime.Message{
		Event: "new-message",
		Data:  gin.H{"chatId": chat.ID, "message": msg},
	}); err != nil {
		_ = c.Error(err)
	}
	h.Dispatcher.Notify(notify.Notice{
		RecipientID: recipientID,
		Title:       "New Message",
		Message:     preview(content),
		Category:    models.CategoryMessage,
		Link:        "/chats/" + chat.ID,
	})

	utils.Created(c, "Message sent", msg)
}

// MarkRead handles PUT /chats/:chatId/read: messages from the other
// participant become read and the caller's unread counter is reset.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	chat, ok := h.loadChat(c, userID, false)
	if !ok {
		return
	}

	unreadColumn := "unread_doctor"
	if userID == chat.PatientID {
		unreadColumn = "unread_patient"
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChatMessage{}).
			Where("chat_id = ? AND sender_id <> ? AND `read` = ?", chat.ID, userID, false).
			Update("read", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Update(unreadColumn, 0).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Messages marked as read", nil)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}
