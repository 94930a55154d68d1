package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"medibook-server/internal/events"
	"medibook-server/internal/models"
	"medibook-server/internal/realtime"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []models.Notification
	err   error
}

func (f *fakeStore) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n.ID = "n1"
	f.saved = append(f.saved, *n)
	return nil
}

type fakeRealtime struct {
	mu       sync.Mutex
	channels []string
}

func (f *fakeRealtime) Publish(_ context.Context, channelID string, _ realtime.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channelID)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeEvents) Close() error { return nil }

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return f.err
}

// syncWriter guards the log buffer written by several workers.
type syncWriter struct {
	mu sync.Mutex
	sb strings.Builder
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sb.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sb.String()
}

func TestQueue_DeliversAllSideEffects(t *testing.T) {
	store, rt, ev, mail := &fakeStore{}, &fakeRealtime{}, &fakeEvents{}, &fakeMailer{}
	q := NewQueue(store, rt, ev, mail, zerolog.Nop(), 8, 2)

	q.Notify(Notice{
		RecipientID:   "u1",
		Title:         "Appointment Confirmed",
		Message:       "confirmed",
		Category:      models.CategoryAppointment,
		AppointmentID: "a1",
		Email:         &Email{To: "u1@example.com", Subject: "s", HTML: "<p>x</p>"},
	})
	q.Emit(events.Event{Type: events.TypeBooked, AppointmentID: "a1"})
	q.Close()

	if len(store.saved) != 1 || store.saved[0].UserID != "u1" || store.saved[0].Category != models.CategoryAppointment {
		t.Fatalf("unexpected stored notifications: %+v", store.saved)
	}
	if id := store.saved[0].AppointmentID; id == nil || *id != "a1" {
		t.Fatalf("stored notification lost the appointment id: %v", id)
	}
	if len(rt.channels) != 1 || rt.channels[0] != "u1" {
		t.Fatalf("unexpected realtime channels: %v", rt.channels)
	}
	if len(mail.sent) != 1 || mail.sent[0] != "u1@example.com" {
		t.Fatalf("unexpected mail: %v", mail.sent)
	}
	if len(ev.events) != 1 || ev.events[0].AppointmentID != "a1" {
		t.Fatalf("unexpected events: %+v", ev.events)
	}
}

func TestQueue_FailuresAreLoggedAndSwallowed(t *testing.T) {
	var logs syncWriter
	store := &fakeStore{err: errors.New("db down")}
	rt := &fakeRealtime{}
	ev := &fakeEvents{err: errors.New("broker down")}
	mail := &fakeMailer{err: errors.New("smtp down")}
	q := NewQueue(store, rt, ev, mail, zerolog.New(&logs), 4, 1)

	q.Notify(Notice{RecipientID: "u1", Email: &Email{To: "u1@example.com"}})
	q.Emit(events.Event{AppointmentID: "a1"})
	q.Close()

	if len(rt.channels) != 0 {
		t.Fatal("unsaved notification must not be pushed")
	}
	if len(mail.sent) != 1 {
		t.Fatal("email is attempted even when storing fails")
	}
	out := logs.String()
	for _, want := range []string{"notification not stored", "email not sent", "event publish failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q", want)
		}
	}
}

func TestQueue_DropsWhenClosed(t *testing.T) {
	var logs syncWriter
	store := &fakeStore{}
	q := NewQueue(store, &fakeRealtime{}, &fakeEvents{}, &fakeMailer{}, zerolog.New(&logs), 1, 1)
	q.Close()
	q.Close()

	q.Notify(Notice{RecipientID: "u1"})
	if len(store.saved) != 0 {
		t.Fatal("job ran after close")
	}
	if !strings.Contains(logs.String(), "queue closed") {
		t.Fatalf("expected drop warning, got %s", logs.String())
	}
}
