package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medibook-server/internal/events"
	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/notify"
	"medibook-server/internal/realtime"
	"medibook-server/internal/repository"
	"medibook-server/internal/services"
	"medibook-server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

func (d *recordingDispatcher) noticesFor(userID string) []notify.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Notice
	for _, n := range d.notices {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out
}

type fakeRealtime struct {
	mu       sync.Mutex
	messages map[string][]realtime.Message
}

func (f *fakeRealtime) Publish(_ context.Context, channelID string, msg realtime.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = map[string][]realtime.Message{}
	}
	f.messages[channelID] = append(f.messages[channelID], msg)
	return nil
}

func (f *fakeRealtime) on(channelID string) []realtime.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[channelID]
}

// testEnv is a router over an in-memory database. Requests are
// authenticated as the user passed to do, bypassing JWT.
type testEnv struct {
	t          *testing.T
	db         *gorm.DB
	router     *gin.Engine
	dispatcher *recordingDispatcher
	realtime   *fakeRealtime
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	env := &testEnv{
		t:          t,
		db:         db,
		router:     gin.New(),
		dispatcher: &recordingDispatcher{},
		realtime:   &fakeRealtime{},
	}

	env.router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			role, _ := models.ParseRole(c.GetHeader("X-Test-Role"))
			middleware.SetIdentity(c, id, role)
		}
		c.Next()
	})
	return env
}

func (e *testEnv) appointmentService() *services.AppointmentService {
	return services.NewAppointmentService(
		repository.NewAppointmentRepository(e.db),
		repository.NewUserRepository(e.db),
		e.dispatcher,
		zerolog.Nop(),
	)
}

func (e *testEnv) do(method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	e.send(req, as)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) send(req *http.Request, as *models.User) {
	if as != nil {
		req.Header.Set("X-Test-User", as.ID)
		req.Header.Set("X-Test-Role", string(as.Role))
	}
}

func (e *testEnv) serve(req *http.Request, as *models.User) *httptest.ResponseRecorder {
	e.send(req, as)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// expect checks the status code and decodes the envelope's data into out, if given.
func expect(t *testing.T, w *httptest.ResponseRecorder, code int, out any) envelope {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status = %d, want %d: %s", w.Code, code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v (%s)", err, string(env.Data))
		}
	}
	return env
}

func nextWeek() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format(models.DateLayout)
}

func bookInput(doctorID string) services.BookInput {
	return services.BookInput{
		DoctorID: doctorID,
		Date:     time.Now().UTC().AddDate(0, 0, 7),
		TimeSlot: "10:00 AM",
		Reason:   "Checkup",
	}
}
