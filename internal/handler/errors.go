package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/scannerapi"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var rejected *scannerapi.RejectedError
	switch {
	case errors.Is(err, errs.ErrInvalidOTP):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrNoSession),
		errors.Is(err, errs.ErrLoginFailed):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrEventNotSelected),
		errors.Is(err, errs.ErrScannerNotOpen):
		return http.StatusConflict
	case errors.As(err, &rejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	if errors.Is(err, errs.ErrUnauthorized) {
		msg = "session expired"
	}
	c.JSON(code, gin.H{"error": http.StatusText(code), "message": msg})
}
