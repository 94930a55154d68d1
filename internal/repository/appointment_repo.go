package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medibook-server/internal/apperrors"
	"medibook-server/internal/models"
)

// AppointmentRepository is the appointment record store. The unique index on
// the active slot column is what finally rejects double bookings.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	GetForDoctor(ctx context.Context, id, doctorID string) (*models.Appointment, error)
	GetForPatient(ctx context.Context, id, patientID string) (*models.Appointment, error)
	FindActiveBySlot(ctx context.Context, doctorID string, date time.Time, timeSlot string) (*models.Appointment, error)
	ListByPatient(ctx context.Context, patientID string, status models.AppointmentStatus) ([]models.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string, status models.AppointmentStatus) ([]models.Appointment, error)
	ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository returns a gorm backed AppointmentRepository.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(appt).Error
	if IsDuplicateKey(err) {
		return apperrors.ErrSlotConflict
	}
	return err
}

func (r *appointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(appt).Error
	if IsDuplicateKey(err) {
		return apperrors.ErrSlotConflict
	}
	return err
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return r.first(ctx, r.db.Where("id = ?", id))
}

func (r *appointmentRepository) GetForDoctor(ctx context.Context, id, doctorID string) (*models.Appointment, error) {
	return r.first(ctx, r.db.Where("id = ? AND doctor_id = ?", id, doctorID))
}

func (r *appointmentRepository) GetForPatient(ctx context.Context, id, patientID string) (*models.Appointment, error) {
	return r.first(ctx, r.db.Where("id = ? AND patient_id = ?", id, patientID))
}

func (r *appointmentRepository) first(ctx context.Context, q *gorm.DB) (*models.Appointment, error) {
	var appt models.Appointment
	err := q.WithContext(ctx).Preload("Patient").Preload("Doctor").First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindActiveBySlot returns nil, nil when the slot is free.
func (r *appointmentRepository) FindActiveBySlot(ctx context.Context, doctorID string, date time.Time, timeSlot string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Where("active_slot = ?", models.SlotKey(doctorID, date, timeSlot)).
		First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Preload("Doctor").Where("patient_id = ?", patientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var appts []models.Appointment
	err := q.Order("date desc").Order("time_slot asc").Find(&appts).Error
	return appts, err
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Preload("Patient").Where("doctor_id = ?", doctorID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var appts []models.Appointment
	err := q.Order("date asc").Order("time_slot asc").Find(&appts).Error
	return appts, err
}

// ListUpcoming returns confirmed appointments with from <= date < to.
func (r *appointmentRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		Where("status = ? AND date >= ? AND date < ?", models.StatusConfirmed, models.NormalizeDate(from), models.NormalizeDate(to)).
		Order("date asc").Order("time_slot asc").
		Find(&appts).Error
	return appts, err
}

// IsDuplicateKey recognizes unique violations from gorm's translator, the
// MySQL driver and sqlite.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
