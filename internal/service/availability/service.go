package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
)

// Policy is the booking cutoff relative to a session's start.
type Policy struct {
	// Grace is how long after the start bookings are still accepted.
	Grace time.Duration
	// ReportSessionEnded reports SessionEnded instead of BookingWindowClosed
	// once the session is over.
	ReportSessionEnded bool
}

type Config struct {
	Policy     Policy
	SeatMapTTL time.Duration
}

type Reader interface {
	GetSession(ctx context.Context, id int64) (domain.Session, error)
	GetSeat(ctx context.Context, id int64) (domain.Seat, error)
	BookingExists(ctx context.Context, sessionID, seatID int64) (bool, error)
	SeatMap(ctx context.Context, sessionID, hallID int64) ([]domain.SeatState, error)
}

// SeatGetter is the read CheckSession needs. A transaction satisfies it.
type SeatGetter interface {
	GetSeat(ctx context.Context, id int64) (domain.Seat, error)
}

type Service struct {
	store Reader
	cache *redisrepo.Cache
	cfg   Config
}

func New(store Reader, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.Policy.Grace < 0 {
		cfg.Policy.Grace = 0
	}

	if cfg.SeatMapTTL <= 0 {
		cfg.SeatMapTTL = 5 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

func (s *Service) Policy() Policy {
	return s.cfg.Policy
}

// Window decides whether now is still inside the booking window of session.
// The cutoff itself is inclusive.
func (p Policy) Window(session domain.Session, now time.Time) domain.Decision {
	if !now.After(session.StartsAt.Add(p.Grace)) {
		return domain.Allow
	}

	if p.ReportSessionEnded && now.After(session.EndsAt()) {
		return domain.Rejected(domain.ReasonSessionEnded)
	}

	return domain.Rejected(domain.ReasonBookingWindowClosed)
}

// CheckBookable decides whether seatID may be booked for sessionID at now.
// The decision is advisory: it does not claim the seat.
//
// Parameters:
//   - ctx: request-scoped context.
//   - sessionID: the session to book.
//   - seatID: the seat to book.
//   - now: the time the request is evaluated at.
//
// Returns:
//   - domain.Decision: allowed, or the reason for the refusal.
//   - error: only for storage failures.
func (s *Service) CheckBookable(
	ctx context.Context,
	sessionID, seatID int64,
	now time.Time,
) (domain.Decision, error) {
	const op = "service.availability.CheckBookable"

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rejected(domain.ReasonSessionNotFound), nil
		}
		return domain.Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.CheckSession(ctx, s.store, session, seatID, now)
}

// CheckSession is CheckBookable for a session the caller already holds,
// typically read under a lock inside a write transaction. Seats are looked up
// through seats so the check sees the same snapshot as the write.
func (s *Service) CheckSession(
	ctx context.Context,
	seats SeatGetter,
	session domain.Session,
	seatID int64,
	now time.Time,
) (domain.Decision, error) {
	const op = "service.availability.CheckSession"

	if d := s.cfg.Policy.Window(session, now); !d.Allowed() {
		return d, nil
	}

	seat, err := seats.GetSeat(ctx, seatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rejected(domain.ReasonSeatNotFound), nil
		}
		return domain.Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	if seat.HallID != session.HallID {
		return domain.Rejected(domain.ReasonSeatNotInHall), nil
	}

	return domain.Allow, nil
}

// CheckSeat is CheckBookable followed by a lookup of an existing booking for
// the seat. It answers "can I book this seat right now" for callers that are
// not about to write.
func (s *Service) CheckSeat(
	ctx context.Context,
	sessionID, seatID int64,
	now time.Time,
) (domain.Decision, error) {
	const op = "service.availability.CheckSeat"

	d, err := s.CheckBookable(ctx, sessionID, seatID, now)
	if err != nil || !d.Allowed() {
		return d, err
	}

	booked, err := s.store.BookingExists(ctx, sessionID, seatID)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if booked {
		return domain.Rejected(domain.ReasonSeatAlreadyBooked), nil
	}

	return domain.Allow, nil
}

// SeatMap lists every seat of the session's hall with its booked flag. The
// projection is cached for a short time and invalidated on booking changes.
//
// Parameters:
//   - ctx: request-scoped context.
//   - sessionID: the session to project.
//
// Returns:
//   - []domain.SeatState: seats ordered by row and number.
//   - error: *domain.RejectedError(SessionNotFound) if the session does not exist.
func (s *Service) SeatMap(ctx context.Context, sessionID int64) ([]domain.SeatState, error) {
	const op = "service.availability.SeatMap"

	key, err := s.cache.SeatMapKey(ctx, sessionID)
	if err != nil {
		// cache unreachable, serve from storage
		seats, err := s.loadSeatMap(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return seats, nil
	}

	seats, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.SeatMapTTL, func(ctx context.Context) ([]domain.SeatState, error) {
		return s.loadSeatMap(ctx, sessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return seats, nil
}

func (s *Service) loadSeatMap(ctx context.Context, sessionID int64) ([]domain.SeatState, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Reject(domain.ReasonSessionNotFound)
		}
		return nil, err
	}

	seats, err := s.store.SeatMap(ctx, session.ID, session.HallID)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []domain.SeatState{}
	}

	return seats, nil
}
