// Package repository defines the persistence port consumed by the services.
//
// Implementations translate their native failures into the sentinels in
// errors.go. InsertBooking is the atomic "insert, fail if (session, seat) is
// taken" primitive and must report ErrConflict rather than a raw driver error.
package repository

import (
	"context"

	"github.com/kirinyoku/cinebook/internal/domain"
)

type Films interface {
	GetFilm(ctx context.Context, id int64) (domain.Film, error)
	InsertFilm(ctx context.Context, f domain.Film) (domain.Film, error)
}

type Viewers interface {
	GetViewer(ctx context.Context, id int64) (domain.Viewer, error)
	InsertViewer(ctx context.Context, v domain.Viewer) (domain.Viewer, error)
}

type Halls interface {
	GetHall(ctx context.Context, id int64) (domain.Hall, error)
	// LockHall returns the hall and holds a row lock on it until the
	// surrounding transaction ends.
	LockHall(ctx context.Context, id int64) (domain.Hall, error)
	InsertHall(ctx context.Context, h domain.Hall) (domain.Hall, error)
	UpdateHall(ctx context.Context, h domain.Hall) error
	DeleteHall(ctx context.Context, id int64) error
	HallHasBookings(ctx context.Context, hallID int64) (bool, error)
}

type Seats interface {
	GetSeat(ctx context.Context, id int64) (domain.Seat, error)
	ListSeats(ctx context.Context, hallID int64) ([]domain.Seat, error)
	InsertSeats(ctx context.Context, seats []domain.Seat) error
	DeleteSeats(ctx context.Context, ids []int64) error
	// SeatMap lists every seat of the hall with its booked flag for the session.
	SeatMap(ctx context.Context, sessionID, hallID int64) ([]domain.SeatState, error)
}

type Sessions interface {
	GetSession(ctx context.Context, id int64) (domain.Session, error)
	// LockSession returns the session and holds an exclusive row lock on it
	// until the surrounding transaction ends.
	LockSession(ctx context.Context, id int64) (domain.Session, error)
	// ShareSession returns the session and holds a shared row lock on it, so
	// the session can not be moved or removed before the transaction ends.
	ShareSession(ctx context.Context, id int64) (domain.Session, error)
	ListSessions(ctx context.Context, f domain.SessionFilter) ([]domain.Session, error)
	InsertSession(ctx context.Context, s domain.Session) (domain.Session, error)
	UpdateSession(ctx context.Context, s domain.Session) error
	DeleteSession(ctx context.Context, id int64) error
	SessionHasBookings(ctx context.Context, id int64) (bool, error)
}

type Bookings interface {
	GetBooking(ctx context.Context, key domain.BookingKey) (domain.Booking, error)
	BookingExists(ctx context.Context, sessionID, seatID int64) (bool, error)
	ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	// InsertBooking returns ErrConflict when (session, seat) is already
	// booked and ErrReferenced when the viewer, session or seat is gone.
	InsertBooking(ctx context.Context, key domain.BookingKey) (domain.Booking, error)
	DeleteBooking(ctx context.Context, key domain.BookingKey) error
	BookedSeatIDs(ctx context.Context, hallID int64) ([]int64, error)
	BookingDisplay(ctx context.Context, key domain.BookingKey) (domain.DisplayInfo, error)
}

type Store interface {
	Films
	Viewers
	Halls
	Seats
	Sessions
	Bookings
	Ping(ctx context.Context) error
}

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// Transactor runs fn inside one atomic unit. Hooks registered through after
// run only when the unit commits.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Store, after func(AfterCommit)) error) error
}

