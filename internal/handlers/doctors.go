package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

// DoctorHandler handles doctor profiles and the doctor directory.
type DoctorHandler struct {
	DB *gorm.DB
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB) *DoctorHandler {
	return &DoctorHandler{DB: db}
}

// DoctorProfileRequest represents the body of profile creation and update.
type DoctorProfileRequest struct {
	Specialization  string                   `json:"specialization" binding:"required"`
	Experience      int                      `json:"experience" binding:"gte=0"`
	Qualification   string                   `json:"qualification" binding:"required"`
	ConsultationFee float64                  `json:"consultationFee" binding:"gte=0"`
	Bio             string                   `json:"bio"`
	Availability    []models.DayAvailability `json:"availability"`
}

// CreateProfile handles POST /doctors/profile.
func (h *DoctorHandler) CreateProfile(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req DoctorProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var count int64
	if err := h.DB.Model(&models.DoctorProfile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if count > 0 {
		utils.BadRequest(c, "Doctor profile already exists")
		return
	}

	profile := models.DoctorProfile{
		UserID:          userID,
		Specialization:  req.Specialization,
		Experience:      req.Experience,
		Qualification:   req.Qualification,
		ConsultationFee: req.ConsultationFee,
		Bio:             req.Bio,
		Availability:    req.Availability,
	}
	if profile.Availability == nil {
		profile.Availability = []models.DayAvailability{}
	}
	if err := h.DB.Omit("User").Create(&profile).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Doctor profile created successfully", profile)
}

// UpdateProfile handles PUT /doctors/profile.
func (h *DoctorHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var req DoctorProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor profile not found")
			return
		}
		utils.RespondError(c, err)
		return
	}

	profile.Specialization = req.Specialization
	profile.Experience = req.Experience
	profile.Qualification = req.Qualification
	profile.ConsultationFee = req.ConsultationFee
	profile.Bio = req.Bio
	if req.Availability != nil {
		profile.Availability = req.Availability
	}
	if err := h.DB.Omit("User").Save(&profile).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Profile updated successfully", profile)
}

// GetProfile handles GET /doctors/profile.
func (h *DoctorHandler) GetProfile(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	h.respondProfile(c, userID, "Doctor profile not found")
}

// GetDoctorByID handles GET /doctors/:id where id is the doctor's user id.
func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	h.respondProfile(c, c.Param("id"), "Doctor not found")
}

func (h *DoctorHandler) respondProfile(c *gin.Context, userID, notFound string) {
	var profile models.DoctorProfile
	if err := h.DB.Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, notFound)
			return
		}
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Doctor fetched successfully", profile)
}

// GetDoctors handles GET /doctors?specialization=&search=. search matches the
// doctor's name or specialization, case-insensitively.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	q := h.DB.Model(&models.DoctorProfile{}).
		Preload("User").
		Joins("JOIN users ON users.id = doctor_profiles.user_id").
		Order("doctor_profiles.rating desc").
		Order("users.first_name asc")

	if spec := strings.TrimSpace(c.Query("specialization")); spec != "" {
		q = q.Where("doctor_profiles.specialization = ?", spec)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(doctor_profiles.specialization) LIKE ?",
			like, like, like)
	}

	var profiles []models.DoctorProfile
	if err := q.Find(&profiles).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Doctors fetched successfully", profiles)
}
