package errs

import "errors"

// Доменные сентинель-ошибки для маппинга в HTTP коды в handlers.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNoSession        = errors.New("no active session")
	ErrEventNotSelected = errors.New("no event selected")
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidOTP       = errors.New("otp must be exactly 10 digits")
	ErrLoginFailed      = errors.New("login failed")
	ErrScannerNotOpen   = errors.New("scanner is not open")
)
