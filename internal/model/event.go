package model

// Wire types of the remote scanner API.

// LoginResponse is returned by get-access-token; exactly one field is set.
type LoginResponse struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// Organizer is the logged-in organizer profile.
type Organizer struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Thumbnail string  `json:"thumbnail"`
}

// EventStatusRunning marks an event that is currently open for check-in.
const EventStatusRunning = "1"

// Event is an organizer event with check-in counters.
type Event struct {
	ID             int64  `json:"id"`
	Name           string `json:"event_name"`
	StartDate      string `json:"start_date"`
	Status         string `json:"status"`
	Location       string `json:"location"`
	Thumbnail      string `json:"thumbnail"`
	TotalTickets   int    `json:"total_tickets"`
	ScannedTickets int    `json:"scanned_tickets"`
}

// Running reports whether the event is live (as opposed to past).
func (e Event) Running() bool { return e.Status == EventStatusRunning }

// Ticket is a ticket record of an event.
type Ticket struct {
	ID            int64   `json:"id"`
	BookingID     string  `json:"booking_id"`
	TicketID      string  `json:"ticket_id"`
	AttendeeName  string  `json:"attendee_name"`
	AttendeeEmail string  `json:"attendee_email"`
	TicketType    string  `json:"ticket_type"`
	ScanStatus    int     `json:"scan_status"`
	ScanTime      *string `json:"scan_time"`
	CreatedAt     string  `json:"created_at"`
}

// Attendee is a ticket projected for the attendee list.
type Attendee struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	BookingID  string `json:"booking_id"`
	TicketType string `json:"ticket_type,omitempty"`
	Scanned    bool   `json:"scanned"`
}

// AttendeeFromTicket maps a ticket to the attendee view (scan_status 1 means checked in).
func AttendeeFromTicket(t Ticket) Attendee {
	return Attendee{
		ID:         t.ID,
		Name:       t.AttendeeName,
		Email:      t.AttendeeEmail,
		BookingID:  t.BookingID,
		TicketType: t.TicketType,
		Scanned:    t.ScanStatus == 1,
	}
}

// ScanResponse is the body of a scan-ticket call.
// Status is optional; "warning" marks an accepted ticket the operator should look at.
type ScanResponse struct {
	Message string  `json:"message"`
	Status  string  `json:"status,omitempty"`
	Ticket  *Ticket `json:"ticket,omitempty"`
}

// BookingGroup is the set of attendees sharing one booking.
type BookingGroup struct {
	BookingID string     `json:"booking_id"`
	Attendees []Attendee `json:"attendees"`
}

// AttendeePage is the response for GET /events/:id/attendees.
type AttendeePage struct {
	EventID    int64          `json:"event_id"`
	Search     string         `json:"search,omitempty"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total_attendees"`
	CheckedIn  int            `json:"checked_in"`
	Bookings   []BookingGroup `json:"bookings"`
}
