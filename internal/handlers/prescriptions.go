package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/utils"
)

const defaultPrescriptionValidity = 30 * 24 * time.Hour

// PrescriptionHandler handles prescriptions and refill requests.
type PrescriptionHandler struct {
	DB         *gorm.DB
	Dispatcher notify.Dispatcher
	Now        func() time.Time
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(db *gorm.DB, dispatcher notify.Dispatcher) *PrescriptionHandler {
	return &PrescriptionHandler{DB: db, Dispatcher: dispatcher, Now: time.Now}
}

// CreatePrescriptionRequest represents the request body for a new prescription.
type CreatePrescriptionRequest struct {
	AppointmentID  string              `json:"appointmentId" binding:"required"`
	Medications    []models.Medication `json:"medications" binding:"required,min=1,dive"`
	Diagnosis      string              `json:"diagnosis" binding:"required"`
	Notes          string              `json:"notes"`
	ValidUntil     *time.Time          `json:"validUntil"`
	RefillsAllowed int                 `json:"refillsAllowed" binding:"gte=0"`
}

// CreatePrescription handles POST /prescriptions for the doctor's own appointment.
func (h *PrescriptionHandler) CreatePrescription(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appt models.Appointment
	err := h.DB.Where("id = ? AND doctor_id = ?", req.AppointmentID, doctorID).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Appointment not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	p := models.Prescription{
		PatientID:      appt.PatientID,
		DoctorID:       doctorID,
		AppointmentID:  appt.ID,
		Medications:    req.Medications,
		Diagnosis:      req.Diagnosis,
		Notes:          req.Notes,
		ValidUntil:     h.Now().Add(defaultPrescriptionValidity),
		Status:         models.PrescriptionActive,
		RefillsAllowed: req.RefillsAllowed,
	}
	if req.ValidUntil != nil {
		p.ValidUntil = *req.ValidUntil
	}
	if err := h.DB.Omit("Patient", "Doctor").Create(&p).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	h.Dispatcher.Notify(notify.Notice{
		RecipientID:   appt.PatientID,
		Title:         "New Prescription",
		Message:       "Your doctor has issued a new prescription",
		Category:      models.CategoryAppointment,
		Link:          "/prescriptions/" + p.ID,
		AppointmentID: appt.ID,
	})

	utils.Created(c, "Prescription created successfully", p)
}

// GetPatientPrescriptions handles GET /prescriptions/my-prescriptions?status=.
func (h *PrescriptionHandler) GetPatientPrescriptions(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	q := h.DB.Preload("Doctor").Where("patient_id = ?", patientID)
	if s := c.Query("status"); s != "" {
		status := models.PrescriptionStatus(s)
		if !status.Valid() {
			utils.BadRequest(c, "Invalid prescription status")
			return
		}
		q = q.Where("status = ?", status)
	}

	var list []models.Prescription
	if err := q.Order("created_at desc").Find(&list).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Prescriptions fetched successfully", list)
}

// GetDoctorPrescriptions handles GET /prescriptions/patient/:patientId: the
// calling doctor's prescriptions for one patient.
func (h *PrescriptionHandler) GetDoctorPrescriptions(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var list []models.Prescription
	err := h.DB.Preload("Patient").
		Where("doctor_id = ? AND patient_id = ?", doctorID, c.Param("patientId")).
		Order("created_at desc").
		Find(&list).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Prescriptions fetched successfully", list)
}

// RequestRefill handles POST /prescriptions/:prescriptionId/refill.
func (h *PrescriptionHandler) RequestRefill(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	var p models.Prescription
	err := h.DB.Where("id = ? AND patient_id = ?", c.Param("prescriptionId"), patientID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Prescription not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	switch {
	case p.Status != models.PrescriptionActive:
		utils.BadRequest(c, "Prescription is no longer active")
		return
	case p.RefillsUsed >= p.RefillsAllowed:
		utils.BadRequest(c, "No refills remaining. Please contact your doctor.")
		return
	case h.Now().After(p.ValidUntil):
		utils.BadRequest(c, "Prescription has expired. Please book a new appointment.")
		return
	}

	res := h.DB.Model(&models.Prescription{}).
		Where("id = ? AND refills_used < refills_allowed", p.ID).
		Update("refills_used", gorm.Expr("refills_used + 1"))
	if res.Error != nil {
		utils.RespondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.BadRequest(c, "No refills remaining. Please contact your doctor.")
		return
	}
	p.RefillsUsed++

	h.Dispatcher.Notify(notify.Notice{
		RecipientID:   p.DoctorID,
		Title:         "Refill Request",
		Message:       "A patient has requested a prescription refill",
		Category:      models.CategoryAppointment,
		Link:          "/prescriptions/" + p.ID,
		AppointmentID: p.AppointmentID,
	})

	utils.Success(c, "Refill requested successfully", p)
}

// UpdatePrescriptionStatusRequest represents the request body for a status change.
type UpdatePrescriptionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active completed cancelled"`
}

// UpdatePrescriptionStatus handles PUT /prescriptions/:prescriptionId/status.
func (h *PrescriptionHandler) UpdatePrescriptionStatus(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var req UpdatePrescriptionStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var p models.Prescription
	err := h.DB.Where("id = ? AND doctor_id = ?", c.Param("prescriptionId"), doctorID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Prescription not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	p.Status = models.PrescriptionStatus(req.Status)
	if err := h.DB.Model(&p).Update("status", p.Status).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Prescription updated successfully", p)
}
