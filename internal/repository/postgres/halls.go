package postgres

import (
	"context"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

func (s *Store) GetHall(ctx context.Context, id int64) (domain.Hall, error) {
	const op = "postgres.Store.GetHall"

	var h domain.Hall
	err := s.handle().QueryRow(ctx,
		`SELECT id, name, rows_count, seats_per_row
		 FROM halls WHERE id = $1`,
		id,
	).Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsPerRow)
	if err != nil {
		return domain.Hall{}, wrapDBErr(op, err)
	}

	return h, nil
}

// LockHall retrieves a hall and locks its row until the transaction ends.
// Schedule edits and resizes of the same hall are serialized through it.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the hall.
//
// Returns:
//   - domain.Hall: the hall when found.
//   - error: repository.ErrNotFound if the hall does not exist.
func (s *Store) LockHall(ctx context.Context, id int64) (domain.Hall, error) {
	const op = "postgres.Store.LockHall"

	var h domain.Hall
	err := s.handle().QueryRow(ctx,
		`SELECT id, name, rows_count, seats_per_row
		 FROM halls WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsPerRow)
	if err != nil {
		return domain.Hall{}, wrapDBErr(op, err)
	}

	return h, nil
}

func (s *Store) InsertHall(ctx context.Context, h domain.Hall) (domain.Hall, error) {
	const op = "postgres.Store.InsertHall"

	err := s.handle().QueryRow(ctx,
		`INSERT INTO halls(name, rows_count, seats_per_row)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		h.Name, h.Rows, h.SeatsPerRow,
	).Scan(&h.ID)
	if err != nil {
		return domain.Hall{}, wrapDBErr(op, err)
	}

	return h, nil
}

func (s *Store) UpdateHall(ctx context.Context, h domain.Hall) error {
	const op = "postgres.Store.UpdateHall"

	tag, err := s.handle().Exec(ctx,
		`UPDATE halls SET name = $2, rows_count = $3, seats_per_row = $4
		 WHERE id = $1`,
		h.ID, h.Name, h.Rows, h.SeatsPerRow,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteHall(ctx context.Context, id int64) error {
	const op = "postgres.Store.DeleteHall"

	tag, err := s.handle().Exec(ctx, `DELETE FROM halls WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (s *Store) HallHasBookings(ctx context.Context, hallID int64) (bool, error) {
	const op = "postgres.Store.HallHasBookings"

	var exists bool
	err := s.handle().QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM bookings b
		   JOIN seats st ON st.id = b.seat_id
		   WHERE st.hall_id = $1
		 )`,
		hallID,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}
