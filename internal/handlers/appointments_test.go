package handlers

import (
	"net/http"
	"testing"

	"medibook-server/internal/models"
	"medibook-server/internal/testutil"
)

func newAppointmentEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	h := NewAppointmentHandler(env.appointmentService())
	env.router.POST("/appointments", h.CreateAppointment)
	env.router.GET("/appointments/my-appointments", h.GetMyAppointments)
	env.router.PUT("/appointments/:id/cancel", h.CancelAppointment)
	env.router.GET("/appointments/:id", h.GetAppointmentByID)
	env.router.GET("/doctors/appointments/list", h.GetDoctorAppointments)
	env.router.PUT("/doctors/appointments/:id", h.UpdateAppointmentStatus)
	return env
}

func bookBody(doctorID, date string) map[string]string {
	return map[string]string{
		"doctorId": doctorID,
		"date":     date,
		"timeSlot": "10:00 AM",
		"reason":   "Checkup",
	}
}

func TestAppointments_BookCancelRebook(t *testing.T) {
	env := newAppointmentEnv(t)
	doctor := testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor)
	alice := testutil.CreateUser(t, env.db, "alice@example.com", models.RolePatient)
	bob := testutil.CreateUser(t, env.db, "bob@example.com", models.RolePatient)
	date := nextWeek()

	var first models.Appointment
	resp := expect(t, env.do(http.MethodPost, "/appointments", alice, bookBody(doctor.ID, date)), http.StatusCreated, &first)
	if resp.Message != "Appointment booked successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if first.Status != models.StatusPending || first.PatientID != alice.ID {
		t.Fatalf("booked = %+v", first)
	}

	conflict := expect(t, env.do(http.MethodPost, "/appointments", bob, bookBody(doctor.ID, date)), http.StatusBadRequest, nil)
	if conflict.Error != "this time slot is already booked" {
		t.Errorf("error = %q", conflict.Error)
	}

	var cancelled models.Appointment
	expect(t, env.do(http.MethodPut, "/appointments/"+first.ID+"/cancel", alice, nil), http.StatusOK, &cancelled)
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status after cancel = %s", cancelled.Status)
	}

	var rebooked models.Appointment
	expect(t, env.do(http.MethodPost, "/appointments", bob, bookBody(doctor.ID, date)), http.StatusCreated, &rebooked)
	if rebooked.ID == first.ID {
		t.Error("rebooking reused the cancelled appointment")
	}

	var list []models.Appointment
	expect(t, env.do(http.MethodGet, "/doctors/appointments/list", doctor, nil), http.StatusOK, &list)
	if len(list) != 2 {
		t.Errorf("doctor sees %d appointments, want 2", len(list))
	}

	var pending []models.Appointment
	expect(t, env.do(http.MethodGet, "/doctors/appointments/list?status=pending", doctor, nil), http.StatusOK, &pending)
	if len(pending) != 1 || pending[0].ID != rebooked.ID {
		t.Errorf("pending = %+v", pending)
	}
}

func TestAppointments_CreateValidation(t *testing.T) {
	env := newAppointmentEnv(t)
	doctor := testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor)
	patient := testutil.CreateUser(t, env.db, "p@example.com", models.RolePatient)

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"missing reason", map[string]string{"doctorId": doctor.ID, "date": nextWeek(), "timeSlot": "10:00 AM"}, http.StatusBadRequest},
		{"bad date", bookBody(doctor.ID, "next tuesday"), http.StatusBadRequest},
		{"earlier date", bookBody(doctor.ID, "2024-06-01"), http.StatusCreated},
		{"unknown doctor", bookBody("no-such-doctor", nextWeek()), http.StatusNotFound},
		{"patient as doctor", bookBody(patient.ID, nextWeek()), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expect(t, env.do(http.MethodPost, "/appointments", patient, tt.body), tt.code, nil)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		expect(t, env.do(http.MethodPost, "/appointments", nil, bookBody(doctor.ID, nextWeek())), http.StatusUnauthorized, nil)
	})
}

func TestAppointments_StatusTransitions(t *testing.T) {
	env := newAppointmentEnv(t)
	doctor := testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor)
	other := testutil.CreateUser(t, env.db, "other@example.com", models.RoleDoctor)
	patient := testutil.CreateUser(t, env.db, "p@example.com", models.RolePatient)

	var appt models.Appointment
	expect(t, env.do(http.MethodPost, "/appointments", patient, bookBody(doctor.ID, nextWeek())), http.StatusCreated, &appt)
	path := "/doctors/appointments/" + appt.ID

	expect(t, env.do(http.MethodPut, path, other, map[string]string{"status": "confirmed"}), http.StatusNotFound, nil)
	expect(t, env.do(http.MethodPut, path, doctor, map[string]string{"status": "done"}), http.StatusBadRequest, nil)
	expect(t, env.do(http.MethodPut, path, doctor, map[string]string{}), http.StatusBadRequest, nil)

	var confirmed models.Appointment
	expect(t, env.do(http.MethodPut, path, doctor, map[string]string{"status": "confirmed", "notes": "Bring lab results"}), http.StatusOK, &confirmed)
	if confirmed.Status != models.StatusConfirmed || confirmed.Notes != "Bring lab results" {
		t.Errorf("confirmed = %+v", confirmed)
	}
	if got := env.dispatcher.noticesFor(patient.ID); len(got) != 2 {
		// booking confirmation + status change
		t.Errorf("patient notices = %d, want 2", len(got))
	}

	back := expect(t, env.do(http.MethodPut, path, doctor, map[string]string{"status": "pending"}), http.StatusBadRequest, nil)
	if back.Error == "" {
		t.Error("expected a transition error message")
	}

	expect(t, env.do(http.MethodPut, path, doctor, map[string]string{"status": "completed"}), http.StatusOK, nil)
	expect(t, env.do(http.MethodPut, "/appointments/"+appt.ID+"/cancel", patient, nil), http.StatusBadRequest, nil)
}

func TestAppointments_GetByIDAccess(t *testing.T) {
	env := newAppointmentEnv(t)
	doctor := testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor)
	patient := testutil.CreateUser(t, env.db, "p@example.com", models.RolePatient)
	stranger := testutil.CreateUser(t, env.db, "s@example.com", models.RolePatient)

	var appt models.Appointment
	expect(t, env.do(http.MethodPost, "/appointments", patient, bookBody(doctor.ID, nextWeek())), http.StatusCreated, &appt)

	var got models.Appointment
	expect(t, env.do(http.MethodGet, "/appointments/"+appt.ID, patient, nil), http.StatusOK, &got)
	if got.Doctor == nil || got.Doctor.ID != doctor.ID {
		t.Errorf("doctor not loaded: %+v", got.Doctor)
	}
	expect(t, env.do(http.MethodGet, "/appointments/"+appt.ID, doctor, nil), http.StatusOK, nil)
	expect(t, env.do(http.MethodGet, "/appointments/"+appt.ID, stranger, nil), http.StatusForbidden, nil)
	expect(t, env.do(http.MethodGet, "/appointments/missing", patient, nil), http.StatusNotFound, nil)
}

func TestAppointments_MyAppointmentsFilter(t *testing.T) {
	env := newAppointmentEnv(t)
	doctor := testutil.CreateUser(t, env.db, "doc@example.com", models.RoleDoctor)
	patient := testutil.CreateUser(t, env.db, "p@example.com", models.RolePatient)

	expect(t, env.do(http.MethodPost, "/appointments", patient, bookBody(doctor.ID, nextWeek())), http.StatusCreated, nil)

	var all []map[string]any
	expect(t, env.do(http.MethodGet, "/appointments/my-appointments", patient, nil), http.StatusOK, &all)
	if len(all) != 1 {
		t.Fatalf("appointments = %d, want 1", len(all))
	}
	if _, ok := all[0]["doctorProfile"]; !ok {
		t.Error("doctorProfile key missing from the view")
	}

	var cancelled []map[string]any
	expect(t, env.do(http.MethodGet, "/appointments/my-appointments?status=cancelled", patient, nil), http.StatusOK, &cancelled)
	if len(cancelled) != 0 {
		t.Errorf("cancelled = %d, want 0", len(cancelled))
	}

	expect(t, env.do(http.MethodGet, "/appointments/my-appointments?status=bogus", patient, nil), http.StatusBadRequest, nil)
}
