// Package seed loads demo accounts into an empty or partially seeded database.
package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medibook-server/internal/models"
)

type demoDoctor struct {
	FirstName, LastName string
	Email               string
	Specialization      string
	Experience          int
	Qualification       string
	Fee                 float64
	Bio                 string
}

var doctors = []demoDoctor{
	{"Sara", "Lindqvist", "sara.lindqvist@medibook.local", "Cardiologist", 17, "MD, FACC", 120, "Interventional cardiology and heart failure care."},
	{"Tomas", "Okafor", "tomas.okafor@medibook.local", "Dermatologist", 11, "MD, Board Certified Dermatology", 90, "Skin conditions, allergies and minor procedures."},
	{"Lena", "Moreau", "lena.moreau@medibook.local", "Pediatrician", 14, "MD, FAAP", 80, "Child health, growth checks and vaccinations."},
	{"Arjun", "Mehta", "arjun.mehta@medibook.local", "Neurologist", 12, "MD, PhD Neurology", 140, "Headaches, epilepsy and movement disorders."},
	{"Grace", "Whitfield", "grace.whitfield@medibook.local", "General Physician", 8, "MD", 60, "Primary care for adults and families."},
}

// Options configures the seeded credentials.
type Options struct {
	DoctorPassword  string
	PatientPassword string
	AdminEmail      string
	AdminPassword   string
}

// DefaultOptions are the credentials used by the seed command when no flags are given.
func DefaultOptions() Options {
	return Options{
		DoctorPassword:  "doctor123",
		PatientPassword: "patient123",
		AdminEmail:      "admin@medibook.local",
		AdminPassword:   "admin123",
	}
}

// WeekdayAvailability is the default schedule of a seeded doctor.
func WeekdayAvailability() []models.DayAvailability {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	out := make([]models.DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, models.DayAvailability{
			Day: d,
			Slots: []models.TimeRange{
				{StartTime: "09:00", EndTime: "12:00"},
				{StartTime: "14:00", EndTime: "17:00"},
			},
		})
	}
	return out
}

// Run creates the admin, the demo doctors with their profiles and a demo
// patient. Accounts whose email already exists are left untouched, so Run
// can be repeated. It returns the number of users created.
func Run(ctx context.Context, db *gorm.DB, opts Options, logger zerolog.Logger) (int, error) {
	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := ensureUser(tx, &models.User{
			Email: opts.AdminEmail, FirstName: "System", LastName: "Admin", Role: models.RoleAdmin,
		}, opts.AdminPassword)
		if err != nil {
			return err
		}
		if ok {
			created++
		}

		for _, d := range doctors {
			user := &models.User{Email: d.Email, FirstName: d.FirstName, LastName: d.LastName, Role: models.RoleDoctor}
			ok, err := ensureUser(tx, user, opts.DoctorPassword)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			created++
			profile := models.DoctorProfile{
				UserID:          user.ID,
				Specialization:  d.Specialization,
				Experience:      d.Experience,
				Qualification:   d.Qualification,
				ConsultationFee: d.Fee,
				Bio:             d.Bio,
				Availability:    WeekdayAvailability(),
			}
			if err := tx.Omit("User").Create(&profile).Error; err != nil {
				return err
			}
			logger.Info().Str("email", d.Email).Str("specialization", d.Specialization).Msg("seeded doctor")
		}

		ok, err = ensureUser(tx, &models.User{
			Email: "patient@medibook.local", FirstName: "Demo", LastName: "Patient", Role: models.RolePatient,
		}, opts.PatientPassword)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
		return nil
	})
	return created, err
}

// ensureUser creates user unless the email is taken. It reports whether it created one.
func ensureUser(tx *gorm.DB, user *models.User, password string) (bool, error) {
	var existing models.User
	err := tx.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		*user = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := user.SetPassword(password); err != nil {
		return false, err
	}
	return true, tx.Create(user).Error
}
