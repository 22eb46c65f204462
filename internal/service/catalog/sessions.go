package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

// Lead decides whether start respects the scheduling lead time relative to
// now.
func (p LeadPolicy) Lead(start, now time.Time) domain.Decision {
	if start.Before(now.Add(p.MinLead)) {
		return domain.Rejected(domain.ReasonTooSoon)
	}

	if start.After(now.AddDate(0, p.MaxHorizonMonths, 0)) {
		return domain.Rejected(domain.ReasonTooFar)
	}

	return domain.Allow
}

// CheckSession runs every scheduling rule against committed data without
// writing anything.
func (s *Service) CheckSession(ctx context.Context, ss domain.Session) (domain.Decision, error) {
	const op = "service.catalog.CheckSession"

	if d := s.lead.Lead(ss.StartsAt, s.now()); !d.Allowed() {
		return d, nil
	}

	d, err := s.scheduler.CheckIn(ctx, s.store, ss.HallID, ss.StartsAt, ss.Duration, ss.ID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

// CreateSession schedules a new session. The hall row stays locked from the
// conflict check until commit, so two overlapping sessions cannot both pass.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ss: the session; ID is ignored.
//
// Returns:
//   - domain.Session: the stored session.
//   - error: *domain.RejectedError for lead time, operating hours, duration,
//     overlap or unknown film/hall.
func (s *Service) CreateSession(ctx context.Context, ss domain.Session) (domain.Session, error) {
	const op = "service.catalog.CreateSession"

	ss.ID = 0
	ss.StartsAt = ss.StartsAt.UTC()

	if d := s.lead.Lead(ss.StartsAt, s.now()); !d.Allowed() {
		return domain.Session{}, fmt.Errorf("%s: %w", op, d.Err())
	}

	var created domain.Session
	err := s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, _ func(repository.AfterCommit)) error {
		if _, err := tx.GetFilm(ctx, ss.FilmID); err != nil {
			return notFound(err, domain.ReasonFilmNotFound)
		}

		if _, err := tx.LockHall(ctx, ss.HallID); err != nil {
			return notFound(err, domain.ReasonHallNotFound)
		}

		d, err := s.scheduler.CheckIn(ctx, tx, ss.HallID, ss.StartsAt, ss.Duration, 0)
		if err != nil {
			return err
		}
		if !d.Allowed() {
			return d.Err()
		}

		created, err = tx.InsertSession(ctx, ss)
		return err
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// UpdateSession moves or retimes a session that has no bookings yet.
func (s *Service) UpdateSession(ctx context.Context, ss domain.Session) (domain.Session, error) {
	const op = "service.catalog.UpdateSession"

	ss.StartsAt = ss.StartsAt.UTC()

	if d := s.lead.Lead(ss.StartsAt, s.now()); !d.Allowed() {
		return domain.Session{}, fmt.Errorf("%s: %w", op, d.Err())
	}

	err := s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		// the session lock orders this edit with booking writers, which hold
		// a shared lock on the session until they commit
		current, err := tx.LockSession(ctx, ss.ID)
		if err != nil {
			return notFound(err, domain.ReasonSessionNotFound)
		}

		if _, err := tx.GetFilm(ctx, ss.FilmID); err != nil {
			return notFound(err, domain.ReasonFilmNotFound)
		}

		// lock both halls in id order when the session moves
		first, second := current.HallID, ss.HallID
		if first > second {
			first, second = second, first
		}
		if _, err := tx.LockHall(ctx, first); err != nil {
			return notFound(err, domain.ReasonHallNotFound)
		}
		if second != first {
			if _, err := tx.LockHall(ctx, second); err != nil {
				return notFound(err, domain.ReasonHallNotFound)
			}
		}

		booked, err := tx.SessionHasBookings(ctx, ss.ID)
		if err != nil {
			return err
		}
		if booked {
			return domain.Reject(domain.ReasonHasBookings)
		}

		d, err := s.scheduler.CheckIn(ctx, tx, ss.HallID, ss.StartsAt, ss.Duration, ss.ID)
		if err != nil {
			return err
		}
		if !d.Allowed() {
			return d.Err()
		}

		if err := tx.UpdateSession(ctx, ss); err != nil {
			return notFound(err, domain.ReasonSessionNotFound)
		}

		after(func(ctx context.Context) {
			s.invalidate(ctx, ss.ID)
		})

		return nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return ss, nil
}

// DeleteSession removes a session that has no bookings.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteSession"

	err := s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		if _, err := tx.LockSession(ctx, id); err != nil {
			return notFound(err, domain.ReasonSessionNotFound)
		}

		booked, err := tx.SessionHasBookings(ctx, id)
		if err != nil {
			return err
		}
		if booked {
			return domain.Reject(domain.ReasonHasBookings)
		}

		if err := tx.DeleteSession(ctx, id); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return domain.Reject(domain.ReasonHasBookings)
			}
			return notFound(err, domain.ReasonSessionNotFound)
		}

		after(func(ctx context.Context) {
			s.invalidate(ctx, id)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) GetSession(ctx context.Context, id int64) (domain.Session, error) {
	const op = "service.catalog.GetSession"

	ss, err := s.store.GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, notFound(err, domain.ReasonSessionNotFound))
	}

	return ss, nil
}

// ListUpcomingSessions returns sessions starting after now, ordered by start.
// Zero hallID or filmID means any.
func (s *Service) ListUpcomingSessions(ctx context.Context, hallID, filmID int64) ([]domain.Session, error) {
	const op = "service.catalog.ListUpcomingSessions"

	now := s.now()
	all, err := s.store.ListSessions(ctx, domain.SessionFilter{HallID: hallID, FilmID: filmID, From: now})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.Session, 0, len(all))
	for _, ss := range all {
		if ss.StartsAt.After(now) {
			out = append(out, ss)
		}
	}

	return out, nil
}
