package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
)

func (s *Store) GetSeat(ctx context.Context, id int64) (domain.Seat, error) {
	const op = "postgres.Store.GetSeat"

	var st domain.Seat
	err := s.handle().QueryRow(ctx,
		`SELECT id, hall_id, row_no, seat_no FROM seats WHERE id = $1`,
		id,
	).Scan(&st.ID, &st.HallID, &st.Row, &st.Number)
	if err != nil {
		return domain.Seat{}, wrapDBErr(op, err)
	}

	return st, nil
}

func (s *Store) ListSeats(ctx context.Context, hallID int64) ([]domain.Seat, error) {
	const op = "postgres.Store.ListSeats"

	rows, err := s.handle().Query(ctx,
		`SELECT id, hall_id, row_no, seat_no
		 FROM seats WHERE hall_id = $1
		 ORDER BY row_no, seat_no`,
		hallID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Seat
	for rows.Next() {
		var st domain.Seat
		if err := rows.Scan(&st.ID, &st.HallID, &st.Row, &st.Number); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// InsertSeats creates the given seats in one round trip. Seats that already
// exist at the same position are skipped.
func (s *Store) InsertSeats(ctx context.Context, seats []domain.Seat) error {
	const op = "postgres.Store.InsertSeats"

	if len(seats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range seats {
		batch.Queue(
			`INSERT INTO seats(hall_id, row_no, seat_no)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (hall_id, row_no, seat_no) DO NOTHING`,
			st.HallID, st.Row, st.Number,
		)
	}
	if err := s.handle().SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (s *Store) DeleteSeats(ctx context.Context, ids []int64) error {
	const op = "postgres.Store.DeleteSeats"

	if len(ids) == 0 {
		return nil
	}

	if _, err := s.handle().Exec(ctx,
		`DELETE FROM seats WHERE id = ANY($1)`,
		ids,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// SeatMap lists every seat of the hall with a flag telling whether it is
// booked for the session.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - sessionID: the session whose bookings are considered.
//   - hallID: the hall the session runs in.
//
// Returns:
//   - []domain.SeatState: seats ordered by row and number.
//   - error: translated storage error.
func (s *Store) SeatMap(ctx context.Context, sessionID, hallID int64) ([]domain.SeatState, error) {
	const op = "postgres.Store.SeatMap"

	rows, err := s.handle().Query(ctx,
		`SELECT st.id, st.hall_id, st.row_no, st.seat_no, (b.seat_id IS NOT NULL)
		 FROM seats st
		 LEFT JOIN bookings b ON b.seat_id = st.id AND b.session_id = $1
		 WHERE st.hall_id = $2
		 ORDER BY st.row_no, st.seat_no`,
		sessionID, hallID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.SeatState
	for rows.Next() {
		var ss domain.SeatState
		if err := rows.Scan(&ss.ID, &ss.HallID, &ss.Row, &ss.Number, &ss.Booked); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
