package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medibook-server/internal/apperrors"
	"medibook-server/internal/events"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
)

// mockAppointmentRepo enforces the active slot uniqueness like the real index.
type mockAppointmentRepo struct {
	mu    sync.Mutex
	items map[string]*models.Appointment
	users map[string]*models.User

	// skipPreCheck makes FindActiveBySlot report every slot as free.
	skipPreCheck bool
}

func newMockAppointmentRepo(users map[string]*models.User) *mockAppointmentRepo {
	return &mockAppointmentRepo{items: make(map[string]*models.Appointment), users: users}
}

func (m *mockAppointmentRepo) slotTaken(a *models.Appointment) bool {
	if !a.Status.IsActive() {
		return false
	}
	key := models.SlotKey(a.DoctorID, a.Date, a.TimeSlot)
	for id, other := range m.items {
		if id != a.ID && other.Status.IsActive() && models.SlotKey(other.DoctorID, other.Date, other.TimeSlot) == key {
			return true
		}
	}
	return false
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken(a) {
		return apperrors.ErrSlotConflict
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	stored := *a
	stored.Patient, stored.Doctor = nil, nil
	m.items[a.ID] = &stored
	return nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.ID]; !ok {
		return apperrors.NotFound("appointment")
	}
	if m.slotTaken(a) {
		return apperrors.ErrSlotConflict
	}
	stored := *a
	stored.Patient, stored.Doctor = nil, nil
	m.items[a.ID] = &stored
	return nil
}

func (m *mockAppointmentRepo) load(id string, match func(*models.Appointment) bool) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || !match(a) {
		return nil, apperrors.NotFound("appointment")
	}
	out := *a
	out.Patient = m.users[a.PatientID]
	out.Doctor = m.users[a.DoctorID]
	return &out, nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	return m.load(id, func(*models.Appointment) bool { return true })
}

func (m *mockAppointmentRepo) GetForDoctor(_ context.Context, id, doctorID string) (*models.Appointment, error) {
	return m.load(id, func(a *models.Appointment) bool { return a.DoctorID == doctorID })
}

func (m *mockAppointmentRepo) GetForPatient(_ context.Context, id, patientID string) (*models.Appointment, error) {
	return m.load(id, func(a *models.Appointment) bool { return a.PatientID == patientID })
}

func (m *mockAppointmentRepo) FindActiveBySlot(_ context.Context, doctorID string, date time.Time, timeSlot string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipPreCheck {
		return nil, nil
	}
	key := models.SlotKey(doctorID, date, timeSlot)
	for _, a := range m.items {
		if a.Status.IsActive() && models.SlotKey(a.DoctorID, a.Date, a.TimeSlot) == key {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockAppointmentRepo) list(match func(*models.Appointment) bool, less func(a, b models.Appointment) bool) []models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.items {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (m *mockAppointmentRepo) ListByPatient(_ context.Context, patientID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	return m.list(func(a *models.Appointment) bool {
		return a.PatientID == patientID && (status == "" || a.Status == status)
	}, func(a, b models.Appointment) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.TimeSlot < b.TimeSlot
	}), nil
}

func (m *mockAppointmentRepo) ListByDoctor(_ context.Context, doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	return m.list(func(a *models.Appointment) bool {
		return a.DoctorID == doctorID && (status == "" || a.Status == status)
	}, func(a, b models.Appointment) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.TimeSlot < b.TimeSlot
	}), nil
}

func (m *mockAppointmentRepo) ListUpcoming(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	return m.list(func(a *models.Appointment) bool {
		return a.Status == models.StatusConfirmed && !a.Date.Before(from) && a.Date.Before(to)
	}, func(a, b models.Appointment) bool { return a.Date.Before(b.Date) }), nil
}

func (m *mockAppointmentRepo) status(id string) models.AppointmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Status
}

type mockUserRepo struct {
	users    map[string]*models.User
	profiles map[string]models.DoctorProfile
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	return u, nil
}

func (m *mockUserRepo) GetDoctor(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok || u.Role != models.RoleDoctor {
		return nil, apperrors.NotFound("doctor")
	}
	return u, nil
}

func (m *mockUserRepo) DoctorProfiles(_ context.Context, ids []string) (map[string]models.DoctorProfile, error) {
	out := make(map[string]models.DoctorProfile)
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// recordingDispatcher keeps every side effect for assertions.
type recordingDispatcher struct {
	mu      sync.Mutex
	notices []notify.Notice
	events  []events.Event
}

func (d *recordingDispatcher) Notify(n notify.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, n)
}

func (d *recordingDispatcher) Emit(e events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) noticesFor(recipientID string) []notify.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Notice
	for _, n := range d.notices {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = nil
	d.events = nil
}
