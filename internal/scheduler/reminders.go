// Package scheduler runs periodic jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"medibook-server/internal/events"
	"medibook-server/internal/mailer"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/repository"
)

// Reminders notifies patients of their confirmed appointments of the next day.
type Reminders struct {
	appointments repository.AppointmentRepository
	dispatcher   notify.Dispatcher
	logger       zerolog.Logger
	now          func() time.Time
}

func NewReminders(appts repository.AppointmentRepository, dispatcher notify.Dispatcher, logger zerolog.Logger) *Reminders {
	return &Reminders{
		appointments: appts,
		dispatcher:   dispatcher,
		logger:       logger.With().Str("job", "reminders").Logger(),
		now:          time.Now,
	}
}

// Run sends one reminder per confirmed appointment dated tomorrow and returns
// how many were queued.
func (r *Reminders) Run(ctx context.Context) (int, error) {
	from := models.NormalizeDate(r.now()).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	appts, err := r.appointments.ListUpcoming(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list upcoming appointments: %w", err)
	}

	for i := range appts {
		appt := &appts[i]
		date := appt.Date.Format("January 2, 2006")
		n := notify.Notice{
			RecipientID:   appt.PatientID,
			Title:         "Appointment Reminder",
			Message:       fmt.Sprintf("Reminder: you have an appointment tomorrow (%s) at %s.", date, appt.TimeSlot),
			Category:      models.CategoryReminder,
			Link:          "/appointments/" + appt.ID,
			AppointmentID: appt.ID,
		}
		if appt.Patient != nil && appt.Doctor != nil {
			subject, body, err := mailer.Render(mailer.KindReminder, mailer.AppointmentData{
				DoctorName: "Dr. " + appt.Doctor.FullName(),
				Date:       date,
				TimeSlot:   appt.TimeSlot,
			})
			if err == nil {
				n.Email = &notify.Email{To: appt.Patient.Email, Subject: subject, HTML: body}
			}
		}
		r.dispatcher.Notify(n)
		r.dispatcher.Emit(events.FromAppointment(events.TypeReminder, appt, r.now()))
	}
	return len(appts), nil
}

// Start schedules the reminder job on spec (standard 5 field cron) and
// returns the running cron. Stop it on shutdown.
func Start(spec string, job *Reminders) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{job.logger})))
	_, err := c.AddFunc(spec, func() {
		n, err := job.Run(context.Background())
		if err != nil {
			job.logger.Error().Err(err).Msg("reminder run failed")
			return
		}
		job.logger.Info().Int("count", n).Msg("reminders queued")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
