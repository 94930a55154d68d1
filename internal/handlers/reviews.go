package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/utils"
)

// ReviewHandler handles doctor reviews.
type ReviewHandler struct {
	DB *gorm.DB
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

// CreateReviewRequest represents the request body for a review.
type CreateReviewRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment" binding:"required,max=500"`
}

// CreateReview handles POST /reviews. Only completed appointments of the
// caller can be reviewed, once each.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appt models.Appointment
	err := h.DB.Where("id = ? AND patient_id = ? AND status = ?", req.AppointmentID, patientID, models.StatusCompleted).
		First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Completed appointment not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	review := models.Review{
		PatientID:     patientID,
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Patient").Create(&review).Error; err != nil {
			return err
		}
		return updateDoctorRating(tx, appt.DoctorID)
	})
	if err != nil {
		if repository.IsDuplicateKey(err) {
			utils.BadRequest(c, "You have already reviewed this appointment")
			return
		}
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Review submitted successfully", review)
}

// updateDoctorRating stores the average of the doctor's reviews on the profile.
func updateDoctorRating(tx *gorm.DB, doctorID string) error {
	var avg float64
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("doctor_id = ?", doctorID).
		Scan(&avg).Error; err != nil {
		return err
	}
	return tx.Model(&models.DoctorProfile{}).Where("user_id = ?", doctorID).Update("rating", avg).Error
}

// GetDoctorReviews handles GET /reviews/doctor/:doctorId, newest first.
func (h *ReviewHandler) GetDoctorReviews(c *gin.Context) {
	var reviews []models.Review
	err := h.DB.Preload("Patient").
		Where("doctor_id = ?", c.Param("doctorId")).
		Order("created_at desc").
		Find(&reviews).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Reviews fetched successfully", reviews)
}

// RespondRequest represents the doctor's reply to a review.
type RespondRequest struct {
	Response string `json:"response" binding:"required,max=1000"`
}

// RespondToReview handles PUT /reviews/:reviewId/respond.
func (h *ReviewHandler) RespondToReview(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var req RespondRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var review models.Review
	err := h.DB.Where("id = ? AND doctor_id = ?", c.Param("reviewId"), doctorID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Review not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	review.Response = req.Response
	if err := h.DB.Omit("Patient").Save(&review).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Response added successfully", review)
}
