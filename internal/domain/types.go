package domain

import (
	"fmt"
	"time"
)

type Film struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Viewer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Hall struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seats_per_row"`
}

type Seat struct {
	ID     int64 `json:"id"`
	HallID int64 `json:"hall_id"`
	Row    int   `json:"row"`
	Number int   `json:"number"`
}

// Label renders the seat the way it is shown to viewers.
func (s Seat) Label() string {
	return fmt.Sprintf("Row %d, Seat %d", s.Row, s.Number)
}

// Session is one scheduled screening of a film in a hall.
type Session struct {
	ID       int64     `json:"id"`
	FilmID   int64     `json:"film_id"`
	HallID   int64     `json:"hall_id"`
	StartsAt time.Time `json:"starts_at"`
	Duration int       `json:"duration_min"`
}

func (s Session) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.Duration) * time.Minute)
}

// Overlaps reports whether [start, start+duration) intersects the session's
// interval. Touching endpoints do not overlap.
func (s Session) Overlaps(start, end time.Time) bool {
	return start.Before(s.EndsAt()) && end.After(s.StartsAt)
}

type SessionFilter struct {
	HallID    int64
	FilmID    int64
	From      time.Time // inclusive, zero means unbounded
	To        time.Time // exclusive, zero means unbounded
	ExcludeID int64
}

// BookingKey is the composite identity of a booking.
type BookingKey struct {
	ViewerID  int64 `json:"viewer_id"`
	SessionID int64 `json:"session_id"`
	SeatID    int64 `json:"seat_id"`
}

type Booking struct {
	BookingKey
	CreatedAt time.Time `json:"created_at"`
}

type BookingFilter struct {
	ViewerID  int64
	SessionID int64
	SeatID    int64
}

// SeatState is one entry of a session's seat map.
type SeatState struct {
	Seat
	Booked bool `json:"booked"`
}

type Operation string

const (
	OpCreated Operation = "Created"
	OpUpdated Operation = "Updated"
	OpDeleted Operation = "Deleted"
)

type DisplayInfo struct {
	FilmName    string    `json:"film_name"`
	SeatLabel   string    `json:"seat_label"`
	SessionTime time.Time `json:"session_time"`
	ViewerName  string    `json:"viewer_name"`
}

// BookingEvent is pushed to observers after a booking mutation commits.
type BookingEvent struct {
	Operation  Operation   `json:"operation"`
	ViewerID   int64       `json:"viewer_id"`
	SessionID  int64       `json:"session_id"`
	SeatID     int64       `json:"seat_id"`
	Display    DisplayInfo `json:"display"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Actor is the party performing a booking operation.
type Actor struct {
	ViewerID   int64
	Privileged bool
}

// CanActFor reports whether the actor may touch bookings owned by viewerID.
func (a Actor) CanActFor(viewerID int64) bool {
	return a.Privileged || (a.ViewerID != 0 && a.ViewerID == viewerID)
}
