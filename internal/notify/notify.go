// Package notify runs side effects of domain operations outside the request
// path. Failures are logged and dropped, never retried.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"medibook-server/internal/events"
	"medibook-server/internal/mailer"
	"medibook-server/internal/models"
	"medibook-server/internal/realtime"
	"medibook-server/internal/repository"
)

// Email is an optional message sent along with a notice.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Notice is an in-app notification for one recipient.
type Notice struct {
	RecipientID   string
	Title         string
	Message       string
	Category      models.NotificationCategory
	Link          string
	AppointmentID string
	Email         *Email
}

// Dispatcher accepts side effects without reporting their outcome.
type Dispatcher interface {
	Notify(n Notice)
	Emit(e events.Event)
}

// Queue is a Dispatcher backed by a buffered channel and a fixed set of workers.
type Queue struct {
	notifications repository.NotificationRepository
	realtime      realtime.Publisher
	events        events.Publisher
	mail          mailer.Sender
	logger        zerolog.Logger

	jobs   chan func(ctx context.Context)
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewQueue starts workers goroutines reading from a queue of size jobs.
func NewQueue(
	notifications repository.NotificationRepository,
	rt realtime.Publisher,
	ev events.Publisher,
	mail mailer.Sender,
	logger zerolog.Logger,
	size, workers int,
) *Queue {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		notifications: notifications,
		realtime:      rt,
		events:        ev,
		mail:          mail,
		logger:        logger.With().Str("component", "notify").Logger(),
		jobs:          make(chan func(ctx context.Context), size),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func (q *Queue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		job(context.Background())
	}
}

// Notify persists the notice, pushes it to the recipient's channel and
// sends its email, if any.
func (q *Queue) Notify(n Notice) {
	q.enqueue("notify", func(ctx context.Context) { q.deliver(ctx, n) })
}

// Emit forwards e to the event stream.
func (q *Queue) Emit(e events.Event) {
	q.enqueue("emit", func(ctx context.Context) {
		if err := q.events.Publish(ctx, e); err != nil {
			q.logger.Warn().Err(err).
				Str("type", e.Type).
				Str("appointment_id", e.AppointmentID).
				Msg("event publish failed")
		}
	})
}

func (q *Queue) deliver(ctx context.Context, n Notice) {
	log := q.logger.With().
		Str("recipient_id", n.RecipientID).
		Str("appointment_id", n.AppointmentID).
		Logger()

	record := &models.Notification{
		UserID:   n.RecipientID,
		Title:    n.Title,
		Message:  n.Message,
		Category: n.Category,
		Link:     n.Link,
	}
	if n.AppointmentID != "" {
		id := n.AppointmentID
		record.AppointmentID = &id
	}
	if err := q.notifications.Create(ctx, record); err != nil {
		log.Warn().Err(err).Msg("notification not stored")
	} else if err := q.realtime.Publish(ctx, n.RecipientID, realtime.Message{Event: "notification", Data: record}); err != nil {
		log.Warn().Err(err).Msg("notification not pushed")
	}

	if n.Email != nil && n.Email.To != "" {
		if err := q.mail.Send(ctx, n.Email.To, n.Email.Subject, n.Email.HTML); err != nil {
			log.Warn().Err(err).Msg("email not sent")
		}
	}
}

func (q *Queue) enqueue(kind string, job func(ctx context.Context)) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn().Str("kind", kind).Msg("queue closed, dropping job")
		return
	}
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn().Str("kind", kind).Msg("queue full, dropping job")
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}
