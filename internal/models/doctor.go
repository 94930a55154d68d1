package models

import (
	"gorm.io/datatypes"
)

// TimeRange is a bookable window inside a day of a doctor's availability.
type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// DayAvailability lists the windows a doctor works on a given weekday.
type DayAvailability struct {
	Day   string      `json:"day"`
	Slots []TimeRange `json:"slots"`
}

// DoctorProfile holds the professional details of a user with the doctor role.
type DoctorProfile struct {
	BaseModel
	UserID          string                              `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Specialization  string                              `gorm:"size:100;index;not null" json:"specialization"`
	Experience      int                                 `gorm:"not null" json:"experience"`
	Qualification   string                              `gorm:"size:255;not null" json:"qualification"`
	ConsultationFee float64                             `gorm:"not null" json:"consultationFee"`
	Bio             string                              `gorm:"type:text" json:"bio"`
	Rating          float64                             `gorm:"default:0" json:"rating"`
	Availability    datatypes.JSONSlice[DayAvailability] `json:"availability"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
