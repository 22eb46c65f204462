package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

func validSize(rows, perRow int) bool {
	return rows >= 1 && rows <= MaxRows && perRow >= 1 && perRow <= MaxSeatsPerRow
}

func grid(hallID int64, rows, perRow int) []domain.Seat {
	seats := make([]domain.Seat, 0, rows*perRow)
	for r := 1; r <= rows; r++ {
		for n := 1; n <= perRow; n++ {
			seats = append(seats, domain.Seat{HallID: hallID, Row: r, Number: n})
		}
	}
	return seats
}

// CreateHall stores a hall together with its full seat grid.
//
// Parameters:
//   - ctx: request-scoped context.
//   - h: the hall; ID is ignored.
//
// Returns:
//   - domain.Hall: the stored hall.
//   - error: *domain.RejectedError(InvalidHallSize or NameTaken).
func (s *Service) CreateHall(ctx context.Context, h domain.Hall) (domain.Hall, error) {
	const op = "service.catalog.CreateHall"

	if !validSize(h.Rows, h.SeatsPerRow) {
		return domain.Hall{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonInvalidHallSize))
	}

	var created domain.Hall
	err := s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, _ func(repository.AfterCommit)) error {
		hall, err := tx.InsertHall(ctx, domain.Hall{Name: h.Name, Rows: h.Rows, SeatsPerRow: h.SeatsPerRow})
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Reject(domain.ReasonNameTaken)
			}
			return err
		}

		if err := tx.InsertSeats(ctx, grid(hall.ID, hall.Rows, hall.SeatsPerRow)); err != nil {
			return err
		}

		created = hall
		return nil
	})
	if err != nil {
		return domain.Hall{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// ResizeHall renames a hall and reshapes its seat grid. Seats outside the new
// bounds are removed only if none of them was ever booked; missing seats are
// added.
func (s *Service) ResizeHall(ctx context.Context, h domain.Hall) (domain.Hall, error) {
	const op = "service.catalog.ResizeHall"

	if !validSize(h.Rows, h.SeatsPerRow) {
		return domain.Hall{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonInvalidHallSize))
	}

	err := s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		if _, err := tx.LockHall(ctx, h.ID); err != nil {
			return notFound(err, domain.ReasonHallNotFound)
		}

		if err := tx.UpdateHall(ctx, h); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Reject(domain.ReasonNameTaken)
			}
			return notFound(err, domain.ReasonHallNotFound)
		}

		seats, err := tx.ListSeats(ctx, h.ID)
		if err != nil {
			return err
		}

		booked, err := tx.BookedSeatIDs(ctx, h.ID)
		if err != nil {
			return err
		}
		isBooked := make(map[int64]bool, len(booked))
		for _, id := range booked {
			isBooked[id] = true
		}

		var removed []int64
		for _, seat := range seats {
			if seat.Row <= h.Rows && seat.Number <= h.SeatsPerRow {
				continue
			}
			if isBooked[seat.ID] {
				return domain.Reject(domain.ReasonSeatsBooked)
			}
			removed = append(removed, seat.ID)
		}

		if len(removed) > 0 {
			if err := tx.DeleteSeats(ctx, removed); err != nil {
				if errors.Is(err, repository.ErrReferenced) {
					return domain.Reject(domain.ReasonSeatsBooked)
				}
				return err
			}
		}

		// existing positions are skipped by the store
		if err := tx.InsertSeats(ctx, grid(h.ID, h.Rows, h.SeatsPerRow)); err != nil {
			return err
		}

		upcoming, err := tx.ListSessions(ctx, domain.SessionFilter{HallID: h.ID, From: s.now()})
		if err != nil {
			return err
		}

		after(func(ctx context.Context) {
			ids := make([]int64, 0, len(upcoming))
			for _, ss := range upcoming {
				ids = append(ids, ss.ID)
			}
			s.invalidate(ctx, ids...)
		})

		return nil
	})
	if err != nil {
		return domain.Hall{}, fmt.Errorf("%s: %w", op, err)
	}

	return h, nil
}

// DeleteHall removes a hall with no upcoming sessions and no bookings.
func (s *Service) DeleteHall(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteHall"

	err := s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, _ func(repository.AfterCommit)) error {
		if _, err := tx.LockHall(ctx, id); err != nil {
			return notFound(err, domain.ReasonHallNotFound)
		}

		upcoming, err := tx.ListSessions(ctx, domain.SessionFilter{HallID: id, From: s.now()})
		if err != nil {
			return err
		}
		if len(upcoming) > 0 {
			return domain.Reject(domain.ReasonHallInUse)
		}

		booked, err := tx.HallHasBookings(ctx, id)
		if err != nil {
			return err
		}
		if booked {
			return domain.Reject(domain.ReasonHallInUse)
		}

		if err := tx.DeleteHall(ctx, id); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return domain.Reject(domain.ReasonHallInUse)
			}
			return notFound(err, domain.ReasonHallNotFound)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) GetHall(ctx context.Context, id int64) (domain.Hall, error) {
	const op = "service.catalog.GetHall"

	h, err := s.store.GetHall(ctx, id)
	if err != nil {
		return domain.Hall{}, fmt.Errorf("%s: %w", op, notFound(err, domain.ReasonHallNotFound))
	}

	return h, nil
}
