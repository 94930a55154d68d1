package models

import (
	"time"

	"gorm.io/datatypes"
)

// PrescriptionStatus represents the lifecycle of a prescription
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// Valid reports whether s is a recognized prescription status.
func (s PrescriptionStatus) Valid() bool {
	switch s {
	case PrescriptionActive, PrescriptionCompleted, PrescriptionCancelled:
		return true
	}
	return false
}

// Medication is one line of a prescription.
type Medication struct {
	Name         string `json:"name" binding:"required"`
	Dosage       string `json:"dosage" binding:"required"`
	Frequency    string `json:"frequency" binding:"required"`
	Duration     string `json:"duration" binding:"required"`
	Instructions string `json:"instructions"`
}

// Prescription is issued by a doctor for one of their appointments.
type Prescription struct {
	BaseModel
	PatientID      string                          `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID       string                          `gorm:"size:36;index;not null" json:"doctorId"`
	AppointmentID  string                          `gorm:"size:36;index;not null" json:"appointmentId"`
	Medications    datatypes.JSONSlice[Medication] `json:"medications"`
	Diagnosis      string                          `gorm:"type:text;not null" json:"diagnosis"`
	Notes          string                          `gorm:"type:text" json:"notes"`
	ValidUntil     time.Time                       `json:"validUntil"`
	Status         PrescriptionStatus              `gorm:"size:20;default:'active'" json:"status"`
	RefillsAllowed int                             `gorm:"default:0" json:"refillsAllowed"`
	RefillsUsed    int                             `gorm:"default:0" json:"refillsUsed"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
