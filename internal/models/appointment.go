package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// DateLayout is the wire and slot-key format of appointment dates.
const DateLayout = "2006-01-02"

// appointmentTransitions lists the allowed status edges. Terminal states have none.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is one of the four recognized statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether an appointment in this status holds its slot.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal reports whether no further transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-applying the current status is accepted as a no-op.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID  string            `gorm:"size:36;index;not null" json:"doctorId"`
	Date      time.Time         `gorm:"index;not null" json:"date"`
	TimeSlot  string            `gorm:"size:20;not null" json:"timeSlot"`
	Status    AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Reason    string            `gorm:"size:500;not null" json:"reason"`
	Notes     string            `gorm:"type:text" json:"notes,omitempty"`

	// ActiveSlot is set while the appointment is pending or confirmed and NULL
	// otherwise, so the unique index only constrains active appointments.
	ActiveSlot *string `gorm:"size:120;uniqueIndex" json:"-"`

	// Relations
	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// BeforeSave keeps Date at midnight UTC and ActiveSlot in sync with Status.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	a.Date = NormalizeDate(a.Date)
	if a.Status.IsActive() {
		key := SlotKey(a.DoctorID, a.Date, a.TimeSlot)
		a.ActiveSlot = &key
	} else {
		a.ActiveSlot = nil
	}
	return nil
}

// IsParty reports whether userID is the patient or the doctor of the appointment.
func (a *Appointment) IsParty(userID string) bool {
	return userID != "" && (userID == a.PatientID || userID == a.DoctorID)
}

// NormalizeDate drops the clock part of t, keeping its calendar date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a plain calendar date or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}

// SlotKey identifies a bookable unit of time for a doctor.
func SlotKey(doctorID string, date time.Time, timeSlot string) string {
	return doctorID + "|" + NormalizeDate(date).Format(DateLayout) + "|" + strings.TrimSpace(timeSlot)
}
