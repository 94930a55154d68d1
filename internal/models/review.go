package models

// Review is a patient's rating of a completed appointment.
type Review struct {
	BaseModel
	PatientID     string `gorm:"size:36;not null;uniqueIndex:idx_reviews_patient_appointment,priority:1" json:"patientId"`
	DoctorID      string `gorm:"size:36;not null;index" json:"doctorId"`
	AppointmentID string `gorm:"size:36;not null;uniqueIndex:idx_reviews_patient_appointment,priority:2" json:"appointmentId"`
	Rating        int    `gorm:"not null" json:"rating"`
	Comment       string `gorm:"type:text;not null" json:"comment"`
	Response      string `gorm:"type:text" json:"response,omitempty"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
