package domain

import (
	"errors"
	"fmt"
)

// Kind sentinels. A *RejectedError matches exactly one of them via errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrPolicyViolation = errors.New("policy violation")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
)

type Reason string

const (
	ReasonSessionNotFound Reason = "session_not_found"
	ReasonSeatNotFound    Reason = "seat_not_found"
	ReasonHallNotFound    Reason = "hall_not_found"
	ReasonFilmNotFound    Reason = "film_not_found"
	ReasonViewerNotFound  Reason = "viewer_not_found"
	ReasonBookingNotFound Reason = "booking_not_found"

	ReasonBookingWindowClosed   Reason = "booking_window_closed"
	ReasonSessionEnded          Reason = "session_ended"
	ReasonSeatNotInHall         Reason = "seat_not_in_hall"
	ReasonOutsideOperatingHours Reason = "outside_operating_hours"
	ReasonOverlaps              Reason = "overlaps"
	ReasonInvalidDuration       Reason = "invalid_duration"
	ReasonTooSoon               Reason = "too_soon"
	ReasonTooFar                Reason = "too_far"
	ReasonInvalidHallSize       Reason = "invalid_hall_size"
	ReasonSessionChanged        Reason = "session_changed"

	ReasonSeatAlreadyBooked Reason = "seat_already_booked"
	ReasonHasBookings       Reason = "has_bookings"
	ReasonSeatsBooked       Reason = "seats_booked"
	ReasonHallInUse         Reason = "hall_in_use"
	ReasonNameTaken         Reason = "name_taken"

	ReasonNotOwner Reason = "not_owner"
)

var reasonMessages = map[Reason]string{
	ReasonSessionNotFound:       "session not found",
	ReasonSeatNotFound:          "seat not found",
	ReasonHallNotFound:          "hall not found",
	ReasonFilmNotFound:          "film not found",
	ReasonViewerNotFound:        "viewer not found",
	ReasonBookingNotFound:       "booking not found",
	ReasonBookingWindowClosed:   "booking window is closed for this session",
	ReasonSessionEnded:          "session has ended",
	ReasonSeatNotInHall:         "seat does not belong to the session's hall",
	ReasonOutsideOperatingHours: "session is outside operating hours",
	ReasonOverlaps:              "session overlaps another session in this hall",
	ReasonInvalidDuration:       "session duration is out of bounds",
	ReasonTooSoon:               "session starts too soon",
	ReasonTooFar:                "session starts too far in the future",
	ReasonInvalidHallSize:       "hall size is out of bounds",
	ReasonSessionChanged:        "only the seat of a booking can be changed",
	ReasonSeatAlreadyBooked:     "seat is already booked",
	ReasonHasBookings:           "session already has bookings",
	ReasonSeatsBooked:           "seats to be removed are booked",
	ReasonHallInUse:             "hall has upcoming sessions or bookings",
	ReasonNameTaken:             "name is already taken",
	ReasonNotOwner:              "booking belongs to another viewer",
}

// Kind returns the sentinel the reason belongs to.
func (r Reason) Kind() error {
	switch r {
	case ReasonSessionNotFound, ReasonSeatNotFound, ReasonHallNotFound,
		ReasonFilmNotFound, ReasonViewerNotFound, ReasonBookingNotFound:
		return ErrNotFound
	case ReasonSeatAlreadyBooked, ReasonHasBookings, ReasonSeatsBooked,
		ReasonHallInUse, ReasonNameTaken:
		return ErrConflict
	case ReasonNotOwner:
		return ErrForbidden
	default:
		return ErrPolicyViolation
	}
}

func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// RejectedError is an expected, user-actionable refusal.
type RejectedError struct {
	Reason Reason
}

func Reject(r Reason) error {
	return &RejectedError{Reason: r}
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason.Kind(), e.Reason.Message())
}

func (e *RejectedError) Is(target error) bool {
	return target == e.Reason.Kind()
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// Decision is the outcome of a pure eligibility check. The zero value allows.
type Decision struct {
	Reason Reason `json:"reason,omitempty"`
}

var Allow = Decision{}

func Rejected(r Reason) Decision {
	return Decision{Reason: r}
}

func (d Decision) Allowed() bool {
	return d.Reason == ""
}

// Err converts a rejection into a *RejectedError and returns nil otherwise.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return Reject(d.Reason)
}
