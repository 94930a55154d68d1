package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"medibook-server/internal/models"
	"medibook-server/internal/utils"
)

// MedicalRecordHandler handles medical record related requests.
type MedicalRecordHandler struct {
	DB             *gorm.DB
	MaxUploadBytes int64
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB, maxUploadBytes int64) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db, MaxUploadBytes: maxUploadBytes}
}

// CreateMedicalRecordRequest represents the request body for creating a medical record.
type CreateMedicalRecordRequest struct {
	AppointmentID string             `json:"appointmentId" binding:"required"`
	Diagnosis     string             `json:"diagnosis" binding:"required"`
	Prescription  string             `json:"prescription" binding:"required"`
	LabResults    string             `json:"labResults"`
	Notes         string             `json:"notes"`
	VitalSigns    *models.VitalSigns `json:"vitalSigns"`
}

// CreateMedicalRecord handles POST /medical-records for one of the doctor's appointments.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var req CreateMedicalRecordRequest
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

	record := models.MedicalRecord{
		PatientID:     appt.PatientID,
		DoctorID:      doctorID,
		AppointmentID: appt.ID,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		LabResults:    req.LabResults,
		Notes:         req.Notes,
	}
	if req.VitalSigns != nil {
		record.VitalSigns = datatypes.NewJSONType(*req.VitalSigns)
	}

	if err := h.DB.Omit("Patient", "Doctor", "Appointment", "Attachments").Create(&record).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Medical record created successfully", record)
}

// GetMyRecords handles GET /medical-records/my-records for the calling patient.
func (h *MedicalRecordHandler) GetMyRecords(c *gin.Context) {
	patientID, _, ok := caller(c)
	if !ok {
		return
	}

	var records []models.MedicalRecord
	err := h.DB.Preload("Doctor").Preload("Appointment").Preload("Attachments").
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// GetPatientRecords handles GET /medical-records/patient/:patientId: the
// records the calling doctor wrote for that patient.
func (h *MedicalRecordHandler) GetPatientRecords(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var records []models.MedicalRecord
	err := h.DB.Preload("Patient").Preload("Attachments").
		Where("doctor_id = ? AND patient_id = ?", doctorID, c.Param("patientId")).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// loadRecord fetches a record readable by userID: the patient it belongs to
// or the doctor who wrote it. It writes 404 or 403 otherwise.
func (h *MedicalRecordHandler) loadRecord(c *gin.Context, id, userID string, preload ...string) (*models.MedicalRecord, bool) {
	q := h.DB
	for _, p := range preload {
		q = q.Preload(p)
	}

	var record models.MedicalRecord
	if err := q.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Medical record not found")
			return nil, false
		}
		utils.RespondError(c, err)
		return nil, false
	}
	if userID != record.PatientID && userID != record.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return nil, false
	}
	return &record, true
}

// GetMedicalRecordByID handles GET /medical-records/:id.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	record, ok := h.loadRecord(c, c.Param("id"), userID, "Doctor", "Patient", "Attachments")
	if !ok {
		return
	}
	utils.Success(c, "Medical record fetched successfully", record)
}

// UpdateMedicalRecordRequest represents the request body for updating a medical record.
// Omitted fields are left unchanged.
type UpdateMedicalRecordRequest struct {
	Diagnosis    *string            `json:"diagnosis"`
	Prescription *string            `json:"prescription"`
	LabResults   *string            `json:"labResults"`
	Notes        *string            `json:"notes"`
	VitalSigns   *models.VitalSigns `json:"vitalSigns"`
}

// UpdateMedicalRecord handles PUT /medical-records/:id. Only the author may update.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var record models.MedicalRecord
	err := h.DB.Where("id = ? AND doctor_id = ?", c.Param("id"), doctorID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Medical record not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if req.Diagnosis != nil {
		record.Diagnosis = *req.Diagnosis
	}
	if req.Prescription != nil {
		record.Prescription = *req.Prescription
	}
	if req.LabResults != nil {
		record.LabResults = *req.LabResults
	}
	if req.Notes != nil {
		record.Notes = *req.Notes
	}
	if req.VitalSigns != nil {
		record.VitalSigns = datatypes.NewJSONType(*req.VitalSigns)
	}

	if err := h.DB.Omit("Patient", "Doctor", "Appointment", "Attachments").Save(&record).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Record updated successfully", record)
}

// DeleteMedicalRecord handles DELETE /medical-records/:id together with its
// attachments. Only the author may delete.
func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var record models.MedicalRecord
		if err := tx.Where("id = ? AND doctor_id = ?", c.Param("id"), doctorID).First(&record).Error; err != nil {
			return err
		}
		if err := tx.Where("medical_record_id = ?", record.ID).Delete(&models.MedicalRecordAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Medical record not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Medical record deleted successfully", nil)
}

// AttachmentInfo describes a stored attachment without its content.
type AttachmentInfo struct {
	ID              string    `json:"id"`
	MedicalRecordID string    `json:"medicalRecordId"`
	FileName        string    `json:"fileName"`
	FileType        string    `json:"fileType"`
	Size            int64     `json:"size"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UploadMedicalRecordAttachment handles POST /medical-records/:id/attachments
// (multipart field "file"). The content type is sniffed from the bytes, not
// taken from the client.
func (h *MedicalRecordHandler) UploadMedicalRecordAttachment(c *gin.Context) {
	doctorID, _, ok := caller(c)
	if !ok {
		return
	}

	var record models.MedicalRecord
	err := h.DB.Where("id = ? AND doctor_id = ?", c.Param("id"), doctorID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Medical record not found")
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	// Leave room for the multipart framing around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}
	defer file.Close()

	if header.Size > h.MaxUploadBytes {
		utils.BadRequest(c, fmt.Sprintf("File exceeds the %d byte limit", h.MaxUploadBytes))
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		utils.BadRequest(c, "Error reading file content: "+err.Error())
		return
	}
	if int64(len(data)) > h.MaxUploadBytes {
		utils.BadRequest(c, fmt.Sprintf("File exceeds the %d byte limit", h.MaxUploadBytes))
		return
	}
	if len(data) == 0 {
		utils.BadRequest(c, "File is empty")
		return
	}

	attachment := models.MedicalRecordAttachment{
		MedicalRecordID: record.ID,
		FileName:        header.Filename,
		FileType:        mimetype.Detect(data).String(),
		Size:            int64(len(data)),
		FileData:        data,
	}
	if err := h.DB.Create(&attachment).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "File uploaded and linked to medical record successfully", AttachmentInfo{
		ID:              attachment.ID,
		MedicalRecordID: attachment.MedicalRecordID,
		FileName:        attachment.FileName,
		FileType:        attachment.FileType,
		Size:            attachment.Size,
		CreatedAt:       attachment.CreatedAt,
	})
}

// GetMedicalRecordAttachment handles GET /medical-records/attachments/:attachmentId
// and streams the stored file to the record's patient or author.
func (h *MedicalRecordHandler) GetMedicalRecordAttachment(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}

	var attachment models.MedicalRecordAttachment
	if err := h.DB.First(&attachment, "id = ?", c.Param("attachmentId")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Attachment not found")
			return
		}
		utils.RespondError(c, err)
		return
	}

	if _, ok := h.loadRecord(c, attachment.MedicalRecordID, userID); !ok {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	c.Data(http.StatusOK, attachment.FileType, attachment.FileData)
}
