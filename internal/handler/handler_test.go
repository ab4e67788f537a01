package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"github.com/psds-microservice/checkin-scanner/internal/scanner"
	"github.com/psds-microservice/checkin-scanner/internal/scannerapi"
	"github.com/psds-microservice/checkin-scanner/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions struct {
	sess     *model.Session
	loginErr error
	expired  int
}

func (f *fakeSessions) Login(ctx context.Context, otp string) (*model.Session, error) {
	if err := service.ValidateOTP(otp); err != nil {
		return nil, err
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.sess = &model.Session{ID: "s-1", Token: "tok"}
	return f.sess, nil
}

func (f *fakeSessions) Current() (*model.Session, error) {
	if f.sess == nil {
		return nil, errs.ErrNoSession
	}
	return f.sess, nil
}

func (f *fakeSessions) SelectEvent(eventID int64, eventName string) (*model.Session, error) {
	f.sess.EventID, f.sess.EventName = eventID, eventName
	return f.sess, nil
}

func (f *fakeSessions) Logout() error {
	f.sess = nil
	return nil
}

func (f *fakeSessions) Expire() {
	f.expired++
	f.sess = nil
}

func (f *fakeSessions) ExpireSession(id string) {
	if f.sess != nil && f.sess.ID == id {
		f.Expire()
	}
}

func (f *fakeSessions) OnExpire(fn func()) {}

type fakeEvents struct {
	sessions *fakeSessions
	err      error
	query    service.AttendeeQuery
}

func (f *fakeEvents) Organizer(ctx context.Context) (*model.Organizer, error) {
	if f.err != nil {
		return nil, service.ExpireOnUnauthorized(f.sessions, f.err)
	}
	return &model.Organizer{ID: 1, Name: "Vibe Events"}, nil
}

func (f *fakeEvents) Events(ctx context.Context) ([]model.Event, error) {
	if f.err != nil {
		return nil, service.ExpireOnUnauthorized(f.sessions, f.err)
	}
	return []model.Event{{ID: 9, Name: "Launch Party", Status: "1"}}, nil
}

func (f *fakeEvents) SelectEvent(ctx context.Context, eventID int64) (*model.Session, error) {
	if eventID != 9 {
		return nil, fmt.Errorf("event %d: %w", eventID, errs.ErrEventNotFound)
	}
	return f.sessions.SelectEvent(9, "Launch Party")
}

func (f *fakeEvents) Attendees(ctx context.Context, eventID int64, q service.AttendeeQuery) (*model.AttendeePage, error) {
	f.query = q
	return service.BuildAttendeePage(eventID, []model.Attendee{{ID: 1, BookingID: "B1", Scanned: true}}, q), nil
}

type fakeScanner struct {
	open bool
}

func (f *fakeScanner) Start() (scanner.View, error) {
	f.open = true
	return scanner.View{Phase: scanner.PhaseStarting}, nil
}

func (f *fakeScanner) Stop() (scanner.View, error) {
	if !f.open {
		return scanner.View{}, errs.ErrScannerNotOpen
	}
	return scanner.View{Phase: scanner.PhaseIdle}, nil
}

func (f *fakeScanner) Next() (scanner.View, error) { return f.Stop() }

func (f *fakeScanner) Back() error {
	if !f.open {
		return errs.ErrScannerNotOpen
	}
	f.open = false
	return nil
}

func (f *fakeScanner) State() (scanner.View, error) {
	return scanner.View{Phase: scanner.PhaseIdle}, nil
}

func (f *fakeScanner) Close() {}

func newTestEngine(s *fakeSessions, e *fakeEvents, sc *fakeScanner) *gin.Engine {
	sh := NewSessionHandler(s, e)
	eh := NewEventHandler(e)
	sch := NewScannerHandler(sc)
	health := NewHealthHandler(nil, func() int { return 2 })

	r := gin.New()
	r.GET("/ready", health.Ready)
	r.POST("/auth/login", sh.Login)
	r.POST("/auth/logout", sh.Logout)
	r.GET("/auth/session", sh.GetSession)
	r.PUT("/auth/session/event", sh.SelectEvent)
	r.GET("/organizer", sh.GetOrganizer)
	r.GET("/events", eh.ListEvents)
	r.GET("/events/:id/attendees", eh.ListAttendees)
	r.POST("/scanner/start", sch.Start)
	r.POST("/scanner/stop", sch.Stop)
	r.POST("/scanner/back", sch.Back)
	r.GET("/scanner/state", sch.State)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginFlow(t *testing.T) {
	s := &fakeSessions{}
	r := newTestEngine(s, &fakeEvents{sessions: s}, &fakeScanner{})

	if w := do(r, http.MethodGet, "/auth/session", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("session before login: %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/auth/login", `{"otp":"123"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("short otp: %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/auth/login", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing otp: %d", w.Code)
	}
	w := do(r, http.MethodPost, "/auth/login", `{"otp":"0123456789"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("login: %d %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), "tok") {
		t.Fatal("token leaked in response")
	}

	w = do(r, http.MethodPut, "/auth/session/event", `{"event_id":9}`)
	var resp model.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || resp.EventName != "Launch Party" {
		t.Fatalf("select event: %d %+v", w.Code, resp)
	}
	if w := do(r, http.MethodPut, "/auth/session/event", `{"event_id":10}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown event: %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/auth/logout", ""); w.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/auth/session", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("session after logout: %d", w.Code)
	}
}

func TestLoginRejected(t *testing.T) {
	s := &fakeSessions{loginErr: fmt.Errorf("%w: %s", errs.ErrLoginFailed, "Invalid OTP")}
	r := newTestEngine(s, &fakeEvents{sessions: s}, &fakeScanner{})
	w := do(r, http.MethodPost, "/auth/login", `{"otp":"0123456789"}`)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid OTP") {
		t.Fatalf("login: %d %s", w.Code, w.Body)
	}
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	s := &fakeSessions{sess: &model.Session{ID: "s-1", Token: "tok"}}
	e := &fakeEvents{sessions: s, err: fmt.Errorf("get events: %w", errs.ErrUnauthorized)}
	r := newTestEngine(s, e, &fakeScanner{})

	w := do(r, http.MethodGet, "/events", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("events: %d", w.Code)
	}
	if s.expired != 1 || s.sess != nil {
		t.Fatal("session not expired")
	}
	if w := do(r, http.MethodGet, "/organizer", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("organizer: %d", w.Code)
	}
}

func TestListAttendeesQuery(t *testing.T) {
	s := &fakeSessions{sess: &model.Session{ID: "s-1"}}
	e := &fakeEvents{sessions: s}
	r := newTestEngine(s, e, &fakeScanner{})

	w := do(r, http.MethodGet, "/events/9/attendees?search=ana&page=2&page_size=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("attendees: %d %s", w.Code, w.Body)
	}
	if e.query != (service.AttendeeQuery{Search: "ana", Page: 2, PageSize: 5}) {
		t.Fatalf("query = %+v", e.query)
	}
	var page model.AttendeePage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.EventID != 9 || page.CheckedIn != 1 {
		t.Fatalf("page = %+v", page)
	}

	for _, path := range []string{"/events/abc/attendees", "/events/9/attendees?page=x", "/events/9/attendees?page_size=-"} {
		if w := do(r, http.MethodGet, path, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: %d", path, w.Code)
		}
	}
}

func TestScannerCommands(t *testing.T) {
	s := &fakeSessions{}
	r := newTestEngine(s, &fakeEvents{sessions: s}, &fakeScanner{})

	if w := do(r, http.MethodPost, "/scanner/stop", ""); w.Code != http.StatusConflict {
		t.Fatalf("stop before start: %d", w.Code)
	}
	w := do(r, http.MethodPost, "/scanner/start", "")
	if w.Code != http.StatusAccepted || !strings.Contains(w.Body.String(), `"phase":"starting"`) {
		t.Fatalf("start: %d %s", w.Code, w.Body)
	}
	if w := do(r, http.MethodPost, "/scanner/back", ""); w.Code != http.StatusNoContent {
		t.Fatalf("back: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/scanner/state", ""); w.Code != http.StatusOK {
		t.Fatalf("state: %d", w.Code)
	}
}

func TestReady(t *testing.T) {
	s := &fakeSessions{}
	r := newTestEngine(s, &fakeEvents{sessions: s}, &fakeScanner{})
	w := do(r, http.MethodGet, "/ready", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"cameras":2`) {
		t.Fatalf("ready: %d %s", w.Code, w.Body)
	}

	h := NewHealthHandler(func() error { return errors.New("db down") }, nil)
	e := gin.New()
	e.GET("/ready", h.Ready)
	if w := do(e, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready: %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.ErrInvalidOTP, http.StatusBadRequest},
		{fmt.Errorf("x: %w", errs.ErrUnauthorized), http.StatusUnauthorized},
		{errs.ErrEventNotSelected, http.StatusConflict},
		{&scannerapi.RejectedError{StatusCode: 422, Message: "already scanned"}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
