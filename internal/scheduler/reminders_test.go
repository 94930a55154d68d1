package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"medibook-server/internal/events"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/repository"
)

type upcomingRepo struct {
	repository.AppointmentRepository
	appts    []models.Appointment
	err      error
	from, to time.Time
}

func (r *upcomingRepo) ListUpcoming(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	r.from, r.to = from, to
	return r.appts, r.err
}

type captureDispatcher struct {
	notices []notify.Notice
	events  []events.Event
}

func (d *captureDispatcher) Notify(n notify.Notice) { d.notices = append(d.notices, n) }
func (d *captureDispatcher) Emit(e events.Event)    { d.events = append(d.events, e) }

func TestReminders_Run(t *testing.T) {
	tomorrow := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	appt := models.Appointment{
		PatientID: "p1",
		DoctorID:  "d1",
		Date:      tomorrow,
		TimeSlot:  "09:00 AM",
		Status:    models.StatusConfirmed,
		Patient:   &models.User{Email: "p1@example.com"},
		Doctor:    &models.User{FirstName: "Ada", LastName: "Lovelace"},
	}
	appt.ID = "a1"
	repo := &upcomingRepo{appts: []models.Appointment{appt}}
	d := &captureDispatcher{}

	r := NewReminders(repo, d, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC) }

	n, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if !repo.from.Equal(tomorrow) || !repo.to.Equal(tomorrow.AddDate(0, 0, 1)) {
		t.Fatalf("window = [%v, %v)", repo.from, repo.to)
	}
	if len(d.notices) != 1 {
		t.Fatalf("notices = %d", len(d.notices))
	}
	got := d.notices[0]
	if got.RecipientID != "p1" || got.Category != models.CategoryReminder || got.AppointmentID != "a1" {
		t.Fatalf("unexpected notice: %+v", got)
	}
	if got.Email == nil || got.Email.To != "p1@example.com" {
		t.Fatalf("unexpected email: %+v", got.Email)
	}
	if len(d.events) != 1 || d.events[0].Type != events.TypeReminder {
		t.Fatalf("unexpected events: %+v", d.events)
	}
}

func TestReminders_RunError(t *testing.T) {
	repo := &upcomingRepo{err: errors.New("db down")}
	d := &captureDispatcher{}
	if _, err := NewReminders(repo, d, zerolog.Nop()).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(d.notices) != 0 {
		t.Fatal("no notices expected on error")
	}
}

func TestStart_RejectsBadSpec(t *testing.T) {
	r := NewReminders(&upcomingRepo{}, &captureDispatcher{}, zerolog.Nop())
	if _, err := Start("not a cron", r); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	c, err := Start("0 8 * * *", r)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()
}
