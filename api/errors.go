package api

import (
	"errors"
	"net/http"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrPastDate, http.StatusUnprocessableEntity, "past_date"},
	{domain.ErrInvertedRange, http.StatusUnprocessableEntity, "inverted_range"},
	{domain.ErrOutsideAvailability, http.StatusUnprocessableEntity, "outside_availability_window"},
	{domain.ErrInvalidHours, http.StatusUnprocessableEntity, "invalid_hours"},
	{domain.ErrInvalidRating, http.StatusUnprocessableEntity, "invalid_rating"},
	{domain.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

// statusOf maps a service error to an HTTP status and a stable error code.
func statusOf(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Error: msg})
}
