package handlers

import (
	"github.com/gin-gonic/gin"

	"medibook-server/internal/models"
	"medibook-server/internal/services"
	"medibook-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: svc}
}

// CreateAppointmentRequest represents the request body for booking an appointment.
// The patient is always the authenticated caller.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// CreateAppointment handles POST /appointments.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		utils.BadRequest(c, "date must be formatted as YYYY-MM-DD")
		return
	}

	appt, err := h.Service.Book(c.Request.Context(), patientID, services.BookInput{
		DoctorID: req.DoctorID,
		Date:     date,
		TimeSlot: req.TimeSlot,
		Reason:   req.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appt)
}

// GetMyAppointments handles GET /appointments/my-appointments?status=.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	appts, err := h.Service.ListForPatient(c.Request.Context(), patientID, c.Query("status"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// CancelAppointment handles PUT /appointments/:id/cancel.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	appt, err := h.Service.Cancel(c.Request.Context(), patientID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appt)
}

// GetAppointmentByID handles GET /appointments/:id. Only the patient and the
// doctor of the appointment may read it.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	appt, err := h.Service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// GetDoctorAppointments handles GET /doctors/appointments/list?status=.
func (h *AppointmentHandler) GetDoctorAppointments(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	appts, err := h.Service.ListForDoctor(c.Request.Context(), doctorID, c.Query("status"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// UpdateAppointmentStatus handles PUT /doctors/appointments/:id.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Service.UpdateStatus(c.Request.Context(), doctorID, c.Param("id"), models.AppointmentStatus(req.Status), req.Notes)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment updated successfully", appt)
}
