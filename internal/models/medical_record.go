package models

import (
	"gorm.io/datatypes"
)

// VitalSigns captured during a visit. Every field is optional.
type VitalSigns struct {
	BloodPressure string   `json:"bloodPressure,omitempty"`
	HeartRate     *int     `json:"heartRate,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Height        *float64 `json:"height,omitempty"`
}

// MedicalRecord represents a patient's medical record written after an appointment
type MedicalRecord struct {
	BaseModel
	PatientID     string                          `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      string                          `gorm:"size:36;index;not null" json:"doctorId"`
	AppointmentID string                          `gorm:"size:36;index;not null" json:"appointmentId"`
	Diagnosis     string                          `gorm:"type:text;not null" json:"diagnosis"`
	Prescription  string                          `gorm:"type:text;not null" json:"prescription"`
	LabResults    string                          `gorm:"type:text" json:"labResults,omitempty"`
	Notes         string                          `gorm:"type:text" json:"notes"`
	VitalSigns    datatypes.JSONType[VitalSigns]  `json:"vitalSigns"`

	// Relations
	Patient     *User                     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor      *User                     `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Appointment *Appointment              `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Attachments []MedicalRecordAttachment `gorm:"foreignKey:MedicalRecordID" json:"attachments,omitempty"`
}

// MedicalRecordAttachment represents a file attached to a medical record
type MedicalRecordAttachment struct {
	BaseModel
	MedicalRecordID string `json:"medicalRecordId" gorm:"not null;type:varchar(36);index"`
	FileName        string `json:"fileName" gorm:"not null"`
	FileType        string `json:"fileType" gorm:"not null"` // sniffed MIME type
	Size            int64  `json:"size"`
	FileData        []byte `json:"-" gorm:"type:longblob;not null"`
}
