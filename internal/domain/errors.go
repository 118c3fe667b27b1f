package domain

import "errors"

var (
	ErrPastDate            = errors.New("date is in the past")
	ErrInvertedRange       = errors.New("start date is after end date")
	ErrOutsideAvailability = errors.New("dates are outside the tour availability window")
	ErrInvalidHours        = errors.New("hours must be between 1 and 24")
	ErrSlotUnavailable     = errors.New("slot is already booked")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)
