// Package scannerapi is the HTTP client of the remote scanner API (login,
// events, tickets and scan validation).
package scannerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production scanner API.
const DefaultBaseURL = "https://vibeat.io/api/v1/scanner"

const (
	unauthorizedMessage = "Unauthorized"
	scanFailedMessage   = "Failed to scan ticket"
	maxBodySize         = 4 << 20
)

// RejectedError is a non-2xx answer of the scan endpoint that is not an
// authorization failure.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string { return e.Message }

// Client talks to the scanner API. Tokens travel as a query parameter.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a client. A nil httpClient gets a client with timeout.
func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, log: log}
}

// GetAccessToken exchanges a one-time code for a session token. A rejected
// code comes back as a response with Message set, not as an error.
func (c *Client) GetAccessToken(ctx context.Context, otp string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	if _, err := c.get(ctx, "/get-access-token", url.Values{"otp": {otp}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrganizer returns the profile of the token owner.
func (c *Client) GetOrganizer(ctx context.Context, token string) (*model.Organizer, error) {
	raw, err := c.getAuthorized(ctx, "/organizer", token)
	if err != nil {
		return nil, err
	}
	var out model.Organizer
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode organizer: %w", err)
	}
	return &out, nil
}

// GetEvents lists the organizer's events.
func (c *Client) GetEvents(ctx context.Context, token string) ([]model.Event, error) {
	raw, err := c.getAuthorized(ctx, "/events", token)
	if err != nil {
		return nil, err
	}
	var out []model.Event
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return out, nil
}

// GetTickets lists every ticket of an event.
func (c *Client) GetTickets(ctx context.Context, eventID int64, token string) ([]model.Ticket, error) {
	raw, err := c.getAuthorized(ctx, "/tickets/"+strconv.FormatInt(eventID, 10), token)
	if err != nil {
		return nil, err
	}
	var out []model.Ticket
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}
	return out, nil
}

// GetEventAttendees lists the tickets of an event as attendees.
func (c *Client) GetEventAttendees(ctx context.Context, eventID int64, token string) ([]model.Attendee, error) {
	tickets, err := c.GetTickets(ctx, eventID, token)
	if err != nil {
		return nil, err
	}
	out := make([]model.Attendee, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, model.AttendeeFromTicket(t))
	}
	return out, nil
}

// ScanTicket submits a decoded payload for validation. Authorization failures
// wrap errs.ErrUnauthorized; other rejections are *RejectedError.
func (c *Client) ScanTicket(ctx context.Context, token, payload string, eventID int64) (*model.ScanResponse, error) {
	q := url.Values{
		"token":    {token},
		"qr_code":  {payload},
		"event_id": {strconv.FormatInt(eventID, 10)},
	}
	var out model.ScanResponse
	status, err := c.get(ctx, "/scan-ticket", q, &out)
	if err != nil {
		var se *statusError
		if !errors.As(err, &se) {
			return nil, err
		}
		msg := out.Message
		if msg == "" {
			msg = scanFailedMessage
		}
		if isAuthFailure(se.code, msg) {
			return nil, fmt.Errorf("scan ticket: %w", errs.ErrUnauthorized)
		}
		return nil, &RejectedError{StatusCode: se.code, Message: msg}
	}
	if out.Message == unauthorizedMessage {
		return nil, fmt.Errorf("scan ticket: %w", errs.ErrUnauthorized)
	}
	c.log.Debug("ticket scanned", zap.Int64("event_id", eventID), zap.Int("status", status))
	return &out, nil
}

func isAuthFailure(code int, msg string) bool {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return true
	}
	return msg == unauthorizedMessage || strings.Contains(msg, "token")
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return "unexpected status " + strconv.Itoa(e.code) }

type messageEnvelope struct {
	Message string `json:"message"`
}

// getAuthorized fetches path with the token and maps the embedded
// "Unauthorized" marker to errs.ErrUnauthorized.
func (c *Client) getAuthorized(ctx context.Context, path, token string) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.get(ctx, path, url.Values{"token": {token}}, &raw)
	var se *statusError
	if errors.As(err, &se) && (se.code == http.StatusUnauthorized || se.code == http.StatusForbidden) {
		return nil, fmt.Errorf("%s: %w", path, errs.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	var env messageEnvelope
	if json.Unmarshal(raw, &env) == nil && env.Message == unauthorizedMessage {
		return nil, fmt.Errorf("%s: %w", path, errs.ErrUnauthorized)
	}
	return raw, nil
}

// get decodes the JSON body into out even on non-2xx statuses; the status is
// then reported as *statusError.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (int, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s: %w", path, err)
	}
	decodeErr := json.Unmarshal(body, out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug("scanner api non-2xx", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return resp.StatusCode, &statusError{code: resp.StatusCode}
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, decodeErr)
	}
	return resp.StatusCode, nil
}
