package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/model"
)

// EventSource is the part of the scanner API the dashboards read from.
type EventSource interface {
	GetOrganizer(ctx context.Context, token string) (*model.Organizer, error)
	GetEvents(ctx context.Context, token string) ([]model.Event, error)
	GetEventAttendees(ctx context.Context, eventID int64, token string) ([]model.Attendee, error)
}

// EventServicer is what handlers need from EventService.
type EventServicer interface {
	Organizer(ctx context.Context) (*model.Organizer, error)
	Events(ctx context.Context) ([]model.Event, error)
	SelectEvent(ctx context.Context, eventID int64) (*model.Session, error)
	Attendees(ctx context.Context, eventID int64, q AttendeeQuery) (*model.AttendeePage, error)
}

// EventService serves the organizer profile, the event list and attendee pages.
// Every call uses the current session; an unauthorized answer expires it.
type EventService struct {
	api      EventSource
	sessions SessionServicer
	pageSize int
}

// NewEventService creates an event service. pageSize is the default attendee page size.
func NewEventService(api EventSource, sessions SessionServicer, pageSize int) *EventService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &EventService{api: api, sessions: sessions, pageSize: pageSize}
}

func (s *EventService) token() (string, error) {
	sess, err := s.sessions.Current()
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Organizer returns the logged-in organizer.
func (s *EventService) Organizer(ctx context.Context) (*model.Organizer, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	org, err := s.api.GetOrganizer(ctx, token)
	if err != nil {
		return nil, ExpireOnUnauthorized(s.sessions, err)
	}
	return org, nil
}

// Events returns the organizer's events, running ones first.
func (s *EventService) Events(ctx context.Context) ([]model.Event, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	events, err := s.api.GetEvents(ctx, token)
	if err != nil {
		return nil, ExpireOnUnauthorized(s.sessions, err)
	}
	SortEvents(events)
	return events, nil
}

// Event finds one event of the organizer.
func (s *EventService) Event(ctx context.Context, eventID int64) (*model.Event, error) {
	events, err := s.Events(ctx)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID == eventID {
			return &events[i], nil
		}
	}
	return nil, fmt.Errorf("event %d: %w", eventID, errs.ErrEventNotFound)
}

// SelectEvent stores eventID in the session after checking it belongs to the organizer.
func (s *EventService) SelectEvent(ctx context.Context, eventID int64) (*model.Session, error) {
	ev, err := s.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.sessions.SelectEvent(ev.ID, ev.Name)
}

// AttendeeQuery selects one page of an event's attendee list.
type AttendeeQuery struct {
	Search   string
	Page     int
	PageSize int
}

// Attendees returns the attendees of an event grouped by booking.
func (s *EventService) Attendees(ctx context.Context, eventID int64, q AttendeeQuery) (*model.AttendeePage, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	attendees, err := s.api.GetEventAttendees(ctx, eventID, token)
	if err != nil {
		return nil, ExpireOnUnauthorized(s.sessions, err)
	}
	if q.PageSize <= 0 {
		q.PageSize = s.pageSize
	}
	return BuildAttendeePage(eventID, attendees, q), nil
}

// SortEvents puts running events first and keeps the service order otherwise.
func SortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Running() && !events[j].Running()
	})
}

// GroupByBooking groups attendees by booking id in order of first
// appearance; each group is sorted by ticket id.
func GroupByBooking(attendees []model.Attendee) []model.BookingGroup {
	index := make(map[string]int)
	var groups []model.BookingGroup
	for _, a := range attendees {
		i, ok := index[a.BookingID]
		if !ok {
			i = len(groups)
			index[a.BookingID] = i
			groups = append(groups, model.BookingGroup{BookingID: a.BookingID})
		}
		groups[i].Attendees = append(groups[i].Attendees, a)
	}
	for _, g := range groups {
		sort.SliceStable(g.Attendees, func(i, j int) bool { return g.Attendees[i].ID < g.Attendees[j].ID })
	}
	return groups
}

// FilterBookings keeps groups where any attendee name or email, or the
// booking id, contains term (case-insensitive).
func FilterBookings(groups []model.BookingGroup, term string) []model.BookingGroup {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return groups
	}
	out := make([]model.BookingGroup, 0, len(groups))
	for _, g := range groups {
		if bookingMatches(g, term) {
			out = append(out, g)
		}
	}
	return out
}

func bookingMatches(g model.BookingGroup, term string) bool {
	if strings.Contains(strings.ToLower(g.BookingID), term) {
		return true
	}
	for _, a := range g.Attendees {
		if strings.Contains(strings.ToLower(a.Name), term) || strings.Contains(strings.ToLower(a.Email), term) {
			return true
		}
	}
	return false
}

// BuildAttendeePage groups, filters and paginates attendees. Counts cover the
// whole event, not the filtered page.
func BuildAttendeePage(eventID int64, attendees []model.Attendee, q AttendeeQuery) *model.AttendeePage {
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	page := &model.AttendeePage{
		EventID:  eventID,
		Search:   strings.TrimSpace(q.Search),
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    len(attendees),
		Bookings: []model.BookingGroup{},
	}
	for _, a := range attendees {
		if a.Scanned {
			page.CheckedIn++
		}
	}
	groups := FilterBookings(GroupByBooking(attendees), q.Search)
	page.TotalPages = (len(groups) + q.PageSize - 1) / q.PageSize
	if page.TotalPages == 0 {
		page.TotalPages = 1
	}
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Page > page.TotalPages {
		page.Page = page.TotalPages
	}
	start := (page.Page - 1) * q.PageSize
	end := start + q.PageSize
	if end > len(groups) {
		end = len(groups)
	}
	if start < end {
		page.Bookings = groups[start:end]
	}
	return page
}
