package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

func (s *Store) GetBooking(ctx context.Context, key domain.BookingKey) (domain.Booking, error) {
	const op = "postgres.Store.GetBooking"

	b := domain.Booking{BookingKey: key}
	err := s.handle().QueryRow(ctx,
		`SELECT created_at FROM bookings
		 WHERE viewer_id = $1 AND session_id = $2 AND seat_id = $3`,
		key.ViewerID, key.SessionID, key.SeatID,
	).Scan(&b.CreatedAt)
	if err != nil {
		return domain.Booking{}, wrapDBErr(op, err)
	}

	return b, nil
}

func (s *Store) BookingExists(ctx context.Context, sessionID, seatID int64) (bool, error) {
	const op = "postgres.Store.BookingExists"

	var exists bool
	err := s.handle().QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM bookings WHERE session_id = $1 AND seat_id = $2
		 )`,
		sessionID, seatID,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

// ListBookings returns bookings matching every non-zero field of the filter,
// latest sessions first.
func (s *Store) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "postgres.Store.ListBookings"

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ViewerID != 0 {
		add("b.viewer_id = $%d", f.ViewerID)
	}
	if f.SessionID != 0 {
		add("b.session_id = $%d", f.SessionID)
	}
	if f.SeatID != 0 {
		add("b.seat_id = $%d", f.SeatID)
	}

	rows, err := s.handle().Query(ctx,
		`SELECT b.viewer_id, b.session_id, b.seat_id, b.created_at
		 FROM bookings b
		 JOIN sessions ss ON ss.id = b.session_id`+whereClause(conds)+`
		 ORDER BY ss.starts_at DESC, b.session_id, b.seat_id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ViewerID, &b.SessionID, &b.SeatID, &b.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// InsertBooking atomically records a booking unless the seat is already
// taken for the session.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - key: viewer, session and seat of the booking.
//
// Returns:
//   - domain.Booking: the stored booking with its creation time.
//   - error: repository.ErrConflict if (session, seat) is already booked.
//   - error: repository.ErrReferenced if the viewer, session or seat is gone.
func (s *Store) InsertBooking(ctx context.Context, key domain.BookingKey) (domain.Booking, error) {
	const op = "postgres.Store.InsertBooking"

	b := domain.Booking{BookingKey: key}
	err := s.handle().QueryRow(ctx,
		`INSERT INTO bookings(viewer_id, session_id, seat_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, seat_id) DO NOTHING
		 RETURNING created_at`,
		key.ViewerID, key.SessionID, key.SeatID,
	).Scan(&b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}
	if err != nil {
		return domain.Booking{}, wrapDBErr(op, err)
	}

	return b, nil
}

func (s *Store) DeleteBooking(ctx context.Context, key domain.BookingKey) error {
	const op = "postgres.Store.DeleteBooking"

	tag, err := s.handle().Exec(ctx,
		`DELETE FROM bookings
		 WHERE viewer_id = $1 AND session_id = $2 AND seat_id = $3`,
		key.ViewerID, key.SessionID, key.SeatID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (s *Store) BookedSeatIDs(ctx context.Context, hallID int64) ([]int64, error) {
	const op = "postgres.Store.BookedSeatIDs"

	rows, err := s.handle().Query(ctx,
		`SELECT DISTINCT b.seat_id
		 FROM bookings b
		 JOIN seats st ON st.id = b.seat_id
		 WHERE st.hall_id = $1
		 ORDER BY b.seat_id`,
		hallID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// BookingDisplay resolves the human-readable names shown alongside a booking.
// The booking itself need not exist.
func (s *Store) BookingDisplay(ctx context.Context, key domain.BookingKey) (domain.DisplayInfo, error) {
	const op = "postgres.Store.BookingDisplay"

	var (
		d        domain.DisplayInfo
		row, num int
	)
	err := s.handle().QueryRow(ctx,
		`SELECT f.name, ss.starts_at, st.row_no, st.seat_no, v.name
		 FROM sessions ss
		 JOIN films f ON f.id = ss.film_id
		 JOIN seats st ON st.id = $3
		 JOIN viewers v ON v.id = $1
		 WHERE ss.id = $2`,
		key.ViewerID, key.SessionID, key.SeatID,
	).Scan(&d.FilmName, &d.SessionTime, &row, &num, &d.ViewerName)
	if err != nil {
		return domain.DisplayInfo{}, wrapDBErr(op, err)
	}

	d.SeatLabel = domain.Seat{Row: row, Number: num}.Label()
	return d, nil
}
