package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/model"
)

type fakeEventSource struct {
	events    []model.Event
	attendees []model.Attendee
	err       error
	tokens    []string
}

func (f *fakeEventSource) GetOrganizer(ctx context.Context, token string) (*model.Organizer, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Organizer{ID: 1, Name: "Vibe Events"}, nil
}

func (f *fakeEventSource) GetEvents(ctx context.Context, token string) ([]model.Event, error) {
	f.tokens = append(f.tokens, token)
	return append([]model.Event(nil), f.events...), f.err
}

func (f *fakeEventSource) GetEventAttendees(ctx context.Context, eventID int64, token string) ([]model.Attendee, error) {
	f.tokens = append(f.tokens, token)
	return f.attendees, f.err
}

func loggedIn(t *testing.T) *SessionService {
	t.Helper()
	s := newTestSessions(t, &fakeExchanger{resp: &model.LoginResponse{Token: "tok"}})
	if _, err := s.Login(context.Background(), "0123456789"); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSortEventsRunningFirst(t *testing.T) {
	events := []model.Event{
		{ID: 1, Status: "2"},
		{ID: 2, Status: "1"},
		{ID: 3, Status: "2"},
		{ID: 4, Status: "1"},
	}
	SortEvents(events)
	var got []int64
	for _, e := range events {
		got = append(got, e.ID)
	}
	if fmt.Sprint(got) != "[2 4 1 3]" {
		t.Fatalf("order = %v", got)
	}
}

func TestGroupByBooking(t *testing.T) {
	groups := GroupByBooking([]model.Attendee{
		{ID: 5, BookingID: "B2"},
		{ID: 3, BookingID: "B1"},
		{ID: 4, BookingID: "B2"},
		{ID: 1, BookingID: "B1"},
	})
	if len(groups) != 2 || groups[0].BookingID != "B2" || groups[1].BookingID != "B1" {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Attendees[0].ID != 4 || groups[1].Attendees[0].ID != 1 {
		t.Fatalf("attendees not sorted by ticket id: %+v", groups)
	}
}

func TestFilterBookings(t *testing.T) {
	groups := GroupByBooking([]model.Attendee{
		{ID: 1, BookingID: "BK-100", Name: "Ana Rivera", Email: "ana@x.com"},
		{ID: 2, BookingID: "BK-100", Name: "Ben Ortiz", Email: "ben@x.com"},
		{ID: 3, BookingID: "BK-200", Name: "Cleo Park", Email: "cleo@y.org"},
	})
	tests := []struct {
		term string
		want int
	}{
		{"", 2},
		{"RIVERA", 1},
		{"y.org", 1},
		{"bk-", 2},
		{"nobody", 0},
	}
	for _, tt := range tests {
		if got := len(FilterBookings(groups, tt.term)); got != tt.want {
			t.Errorf("FilterBookings(%q) = %d groups, want %d", tt.term, got, tt.want)
		}
	}
	// A match on one attendee keeps the whole booking.
	if got := FilterBookings(groups, "ben"); len(got[0].Attendees) != 2 {
		t.Fatalf("booking split by filter: %+v", got)
	}
}

func TestBuildAttendeePage(t *testing.T) {
	var attendees []model.Attendee
	for i := 1; i <= 25; i++ {
		attendees = append(attendees, model.Attendee{
			ID:        int64(i),
			BookingID: fmt.Sprintf("B%02d", i),
			Name:      fmt.Sprintf("Guest %d", i),
			Scanned:   i%5 == 0,
		})
	}
	page := BuildAttendeePage(7, attendees, AttendeeQuery{Page: 3, PageSize: 10})
	if page.Total != 25 || page.CheckedIn != 5 {
		t.Fatalf("counts = %d/%d", page.CheckedIn, page.Total)
	}
	if page.TotalPages != 3 || len(page.Bookings) != 5 || page.Bookings[0].BookingID != "B21" {
		t.Fatalf("page = %+v", page)
	}

	page = BuildAttendeePage(7, attendees, AttendeeQuery{Page: 99, PageSize: 10})
	if page.Page != 3 {
		t.Fatalf("page clamped to %d", page.Page)
	}

	page = BuildAttendeePage(7, attendees, AttendeeQuery{Search: "guest 2", PageSize: 10})
	if page.Total != 25 || page.TotalPages != 1 || len(page.Bookings) != 7 {
		t.Fatalf("filtered page = %+v", page)
	}

	page = BuildAttendeePage(7, nil, AttendeeQuery{})
	if page.TotalPages != 1 || page.Bookings == nil || len(page.Bookings) != 0 {
		t.Fatalf("empty page = %+v", page)
	}
}

func TestEventServiceUsesSessionToken(t *testing.T) {
	api := &fakeEventSource{events: []model.Event{{ID: 1, Status: "2"}, {ID: 2, Status: "1", Name: "Live"}}}
	svc := NewEventService(api, loggedIn(t), 10)
	events, err := svc.Events(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if events[0].ID != 2 || api.tokens[0] != "tok" {
		t.Fatalf("events = %+v tokens = %v", events, api.tokens)
	}
}

func TestSelectEvent(t *testing.T) {
	sessions := loggedIn(t)
	api := &fakeEventSource{events: []model.Event{{ID: 9, Name: "Launch Party", Status: "1"}}}
	svc := NewEventService(api, sessions, 10)

	if _, err := svc.SelectEvent(context.Background(), 10); !errors.Is(err, errs.ErrEventNotFound) {
		t.Fatalf("unknown event: %v", err)
	}
	sess, err := svc.SelectEvent(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if sess.EventName != "Launch Party" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestEventServiceUnauthorizedExpiresSession(t *testing.T) {
	sessions := loggedIn(t)
	api := &fakeEventSource{err: fmt.Errorf("get events: %w", errs.ErrUnauthorized)}
	svc := NewEventService(api, sessions, 10)

	if _, err := svc.Attendees(context.Background(), 1, AttendeeQuery{}); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if _, err := sessions.Current(); !errors.Is(err, errs.ErrNoSession) {
		t.Fatal("session not expired")
	}
	if _, err := svc.Events(context.Background()); !errors.Is(err, errs.ErrNoSession) {
		t.Fatalf("events without session: %v", err)
	}
}
