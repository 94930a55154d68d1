package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medibook-server/internal/apperrors"
	"medibook-server/internal/events"
	"medibook-server/internal/mailer"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/repository"
)

const mailDateLayout = "January 2, 2006"

// AppointmentService implements booking and the appointment lifecycle.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	dispatcher   notify.Dispatcher
	logger       zerolog.Logger
	appURL       string
	now          func() time.Time
	rejectPast   bool
}

// Option configures an AppointmentService.
type Option func(*AppointmentService)

// WithClock replaces time.Now for event timestamps and past-date checks.
func WithClock(now func() time.Time) Option {
	return func(s *AppointmentService) { s.now = now }
}

// RejectPastDates makes Book refuse dates before today. Off by default.
func RejectPastDates() Option {
	return func(s *AppointmentService) { s.rejectPast = true }
}

// WithAppURL sets the frontend base URL used in notification links.
func WithAppURL(url string) Option {
	return func(s *AppointmentService) { s.appURL = strings.TrimRight(url, "/") }
}

// NewAppointmentService wires the booking workflow to its stores and the
// side-effect dispatcher.
func NewAppointmentService(
	appts repository.AppointmentRepository,
	users repository.UserRepository,
	dispatcher notify.Dispatcher,
	logger zerolog.Logger,
	opts ...Option,
) *AppointmentService {
	s := &AppointmentService{
		appointments: appts,
		users:        users,
		dispatcher:   dispatcher,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookInput is a patient's booking request.
type BookInput struct {
	DoctorID string
	Date     time.Time
	TimeSlot string
	Reason   string
}

// AppointmentView is an appointment with the doctor's professional profile.
type AppointmentView struct {
	models.Appointment
	DoctorProfile *models.DoctorProfile `json:"doctorProfile"`
}

// Book creates a pending appointment for patientID. The pre-check only saves
// a round trip: a concurrent duplicate is rejected by the store with the
// same ErrSlotConflict.
func (s *AppointmentService) Book(ctx context.Context, patientID string, in BookInput) (*models.Appointment, error) {
	if patientID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	in.Reason = strings.TrimSpace(in.Reason)
	switch {
	case in.DoctorID == "":
		return nil, apperrors.Invalid("doctorId is required")
	case in.Date.IsZero():
		return nil, apperrors.Invalid("date is required")
	case in.TimeSlot == "":
		return nil, apperrors.Invalid("timeSlot is required")
	case in.Reason == "":
		return nil, apperrors.Invalid("reason is required")
	}
	date := models.NormalizeDate(in.Date)
	if s.rejectPast && date.Before(models.NormalizeDate(s.now())) {
		return nil, apperrors.Invalid("appointment date must not be in the past")
	}

	doctor, err := s.users.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	existing, err := s.appointments.FindActiveBySlot(ctx, doctor.ID, date, in.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrSlotConflict
	}

	appt := &models.Appointment{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Date:      date,
		TimeSlot:  in.TimeSlot,
		Reason:    in.Reason,
		Status:    models.StatusPending,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}
	appt.Patient = patient
	appt.Doctor = doctor

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", doctor.ID).
		Str("patient_id", patient.ID).
		Msg("appointment booked")

	s.notify(appt, patient, mailer.KindBookedPatient, "Appointment Booked",
		fmt.Sprintf("Your appointment with Dr. %s on %s at %s is pending confirmation.", doctor.FullName(), formatDate(appt.Date), appt.TimeSlot),
		"/appointments")
	s.notify(appt, doctor, mailer.KindBookedDoctor, "New Appointment Request",
		fmt.Sprintf("%s requested an appointment on %s at %s.", patient.FullName(), formatDate(appt.Date), appt.TimeSlot),
		"/doctor/dashboard")
	s.dispatcher.Emit(events.FromAppointment(events.TypeBooked, appt, s.now()))

	return appt, nil
}

// UpdateStatus moves a doctor's appointment to status. Re-applying the
// current status only updates notes.
func (s *AppointmentService) UpdateStatus(ctx context.Context, doctorID, id string, status models.AppointmentStatus, notes *string) (*models.Appointment, error) {
	if doctorID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if !status.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}

	appt, err := s.appointments.GetForDoctor(ctx, id, doctorID)
	if err != nil {
		return nil, err
	}

	prev := appt.Status
	if !prev.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidTransition, prev, status)
	}
	appt.Status = status
	if notes != nil {
		appt.Notes = *notes
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	if prev == status {
		return appt, nil
	}

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("from", string(prev)).
		Str("to", string(status)).
		Msg("appointment status changed")

	switch status {
	case models.StatusConfirmed:
		s.notify(appt, appt.Patient, mailer.KindConfirmed, "Appointment Confirmed",
			fmt.Sprintf("Your appointment on %s at %s has been confirmed.", formatDate(appt.Date), appt.TimeSlot),
			"/appointments")
	case models.StatusCancelled:
		s.notify(appt, appt.Patient, mailer.KindCancelled, "Appointment Cancelled",
			fmt.Sprintf("Your appointment on %s at %s was cancelled by the doctor.", formatDate(appt.Date), appt.TimeSlot),
			"/appointments")
	}
	s.dispatcher.Emit(events.FromAppointment(events.TypeStatusChanged, appt, s.now()))

	return appt, nil
}

// Cancel cancels a patient's own appointment. Cancelling twice is a no-op.
func (s *AppointmentService) Cancel(ctx context.Context, patientID, id string) (*models.Appointment, error) {
	if patientID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	appt, err := s.appointments.GetForPatient(ctx, id, patientID)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case models.StatusCompleted:
		return nil, apperrors.ErrAlreadyCompleted
	case models.StatusCancelled:
		return appt, nil
	}

	appt.Status = models.StatusCancelled
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info().Str("appointment_id", appt.ID).Msg("appointment cancelled by patient")

	s.notify(appt, appt.Doctor, mailer.KindCancelled, "Appointment Cancelled",
		fmt.Sprintf("The appointment on %s at %s was cancelled by the patient.", formatDate(appt.Date), appt.TimeSlot),
		"/doctor/dashboard")
	s.dispatcher.Emit(events.FromAppointment(events.TypeCancelled, appt, s.now()))

	return appt, nil
}

// ListForPatient returns the patient's appointments, newest date first.
func (s *AppointmentService) ListForPatient(ctx context.Context, patientID, status string) ([]AppointmentView, error) {
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.ListByPatient(ctx, patientID, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.DoctorID)
	}
	profiles, err := s.users.DoctorProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		v := AppointmentView{Appointment: a}
		if p, ok := profiles[a.DoctorID]; ok {
			v.DoctorProfile = &p
		}
		views = append(views, v)
	}
	return views, nil
}

// ListForDoctor returns the doctor's appointments in calendar order.
func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID, status string) ([]models.Appointment, error) {
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.appointments.ListByDoctor(ctx, doctorID, filter)
}

// Get returns an appointment to one of its two parties.
func (s *AppointmentService) Get(ctx context.Context, callerID, id string) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParty(callerID) {
		return nil, apperrors.ErrAccessDenied
	}
	return appt, nil
}

func parseStatusFilter(status string) (models.AppointmentStatus, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return "", nil
	}
	st := models.AppointmentStatus(strings.ToLower(status))
	if !st.Valid() {
		return "", apperrors.ErrInvalidStatus
	}
	return st, nil
}

// notify queues an in-app notification with its email for recipient.
// A nil recipient is skipped.
func (s *AppointmentService) notify(appt *models.Appointment, recipient *models.User, kind mailer.Kind, title, message, path string) {
	if recipient == nil {
		s.logger.Warn().Str("appointment_id", appt.ID).Msg("notification recipient not loaded")
		return
	}
	n := notify.Notice{
		RecipientID:   recipient.ID,
		Title:         title,
		Message:       message,
		Category:      models.CategoryAppointment,
		Link:          path,
		AppointmentID: appt.ID,
	}

	data := mailer.AppointmentData{
		Date:     formatDate(appt.Date),
		TimeSlot: appt.TimeSlot,
		Reason:   appt.Reason,
	}
	if s.appURL != "" {
		data.Link = s.appURL + path
	}
	if appt.Doctor != nil {
		data.DoctorName = "Dr. " + appt.Doctor.FullName()
	}
	if appt.Patient != nil {
		data.PatientName = appt.Patient.FullName()
	}
	subject, body, err := mailer.Render(kind, data)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("email not rendered")
	} else {
		n.Email = &notify.Email{To: recipient.Email, Subject: subject, HTML: body}
	}

	s.dispatcher.Notify(n)
}

func formatDate(t time.Time) string {
	return t.Format(mailDateLayout)
}
