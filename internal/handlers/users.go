package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

// UserHandler handles admin user management and the doctor's patient list.
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

func sanitizeAll(users []models.User) []models.UserSanitized {
	out := make([]models.UserSanitized, len(users))
	for i := range users {
		out[i] = users[i].Sanitize()
	}
	return out
}

// GetUsers handles GET /admin/users?role=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	q := h.DB.Order("created_at desc")
	if r := c.Query("role"); r != "" {
		role, ok := models.ParseRole(r)
		if !ok {
			utils.BadRequest(c, "Invalid role filter")
			return
		}
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Users fetched successfully", sanitizeAll(users))
}

// GetUserByID handles GET /admin/users/:id.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	var user models.User
	if err := h.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"omitempty,email"`
	Role      string `json:"role" binding:"omitempty,oneof=patient doctor admin"`
}

// UpdateUser handles PUT /admin/users/:id.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		var taken int64
		if err := h.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
			utils.RespondError(c, err)
			return
		}
		if taken > 0 {
			utils.BadRequest(c, "New email is already in use")
			return
		}
		user.Email = email
	}
	if req.Role != "" {
		user.Role, _ = models.ParseRole(req.Role)
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles DELETE /admin/users/:id. Users with appointments are
// kept so the appointment history stays readable.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		utils.RespondError(c, err)
		return
	}

	var refs int64
	if err := h.DB.Model(&models.Appointment{}).
		Where("patient_id = ? OR doctor_id = ?", userID, userID).
		Count(&refs).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if refs > 0 {
		utils.BadRequest(c, "User has appointments and cannot be deleted")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.DoctorProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}

// GetDoctorPatients handles GET /doctors/patients: every patient who has
// booked with the calling doctor.
func (h *UserHandler) GetDoctorPatients(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var patients []models.User
	err := h.DB.
		Where("role = ? AND id IN (?)", models.RolePatient,
			h.DB.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctorID)).
		Order("first_name asc").Order("last_name asc").
		Find(&patients).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Patients fetched successfully", sanitizeAll(patients))
}
