package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// Kind names one of the appointment mail templates.
type Kind string

const (
	KindBookedPatient Kind = "booked_patient"
	KindBookedDoctor  Kind = "booked_doctor"
	KindConfirmed     Kind = "confirmed"
	KindCancelled     Kind = "cancelled"
	KindReminder      Kind = "reminder"
)

// AppointmentData fills the appointment templates.
type AppointmentData struct {
	DoctorName  string
	PatientName string
	Date        string
	TimeSlot    string
	Reason      string
	Link        string
}

type mailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[Kind]mailTemplate{
	KindBookedPatient: {
		subject: "Appointment Booked Successfully",
		body: template.Must(template.New("booked_patient").Parse(`<h1>Appointment Confirmation</h1>
<p>Your appointment has been booked successfully!</p>
<p><strong>Doctor:</strong> {{.DoctorName}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.TimeSlot}}</p>
<p><strong>Status:</strong> Pending Confirmation</p>
{{if .Link}}<p><a href="{{.Link}}">View appointment</a></p>{{end}}`)),
	},
	KindBookedDoctor: {
		subject: "New Appointment Request",
		body: template.Must(template.New("booked_doctor").Parse(`<h1>New Appointment Request</h1>
<p>You have a new appointment request!</p>
<p><strong>Patient:</strong> {{.PatientName}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.TimeSlot}}</p>
<p><strong>Reason:</strong> {{.Reason}}</p>
{{if .Link}}<p><a href="{{.Link}}">Review request</a></p>{{end}}`)),
	},
	KindConfirmed: {
		subject: "Appointment Confirmed",
		body: template.Must(template.New("confirmed").Parse(`<h1>Appointment Confirmed!</h1>
<p>Your appointment has been confirmed by the doctor.</p>
<p><strong>Doctor:</strong> {{.DoctorName}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.TimeSlot}}</p>
<p>Please arrive 10 minutes early.</p>`)),
	},
	KindCancelled: {
		subject: "Appointment Cancelled",
		body: template.Must(template.New("cancelled").Parse(`<h1>Appointment Cancelled</h1>
<p>Your appointment has been cancelled.</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.TimeSlot}}</p>`)),
	},
	KindReminder: {
		subject: "Appointment Reminder",
		body: template.Must(template.New("reminder").Parse(`<h1>Appointment Reminder</h1>
<p>This is a reminder of your appointment with {{.DoctorName}}.</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.TimeSlot}}</p>`)),
	},
}

// Render returns the subject and HTML body of a template.
func Render(kind Kind, data AppointmentData) (subject, body string, err error) {
	t, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", kind)
	}
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", kind, err)
	}
	return t.subject, buf.String(), nil
}
