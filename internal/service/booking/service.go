package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/availability"
)

// Checker decides booking eligibility. CheckSession runs inside the write
// transaction against a session the caller has locked.
type Checker interface {
	CheckBookable(ctx context.Context, sessionID, seatID int64, now time.Time) (domain.Decision, error)
	CheckSession(
		ctx context.Context,
		seats availability.SeatGetter,
		session domain.Session,
		seatID int64,
		now time.Time,
	) (domain.Decision, error)
}

// Notifier receives booking events after commit. Its errors are logged only.
type Notifier interface {
	Publish(ctx context.Context, ev domain.BookingEvent) error
}

type Deps struct {
	Store    repository.Store
	Tx       repository.Transactor
	Checker  Checker
	Cache    *redisrepo.Cache
	Notifier Notifier
	Metrics  *metrics.Metrics
	Log      *slog.Logger
	Now      func() time.Time
}

// Service is the only writer of bookings. It never lets two bookings exist
// for the same (session, seat): the storage uniqueness rule is the final
// arbiter and its conflict is reported as SeatAlreadyBooked.
type Service struct {
	store    repository.Store
	tx       repository.Transactor
	checker  Checker
	cache    *redisrepo.Cache
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}

	if d.Log == nil {
		d.Log = slog.Default()
	}

	return &Service{
		store:    d.Store,
		tx:       d.Tx,
		checker:  d.Checker,
		cache:    d.Cache,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		log:      d.Log,
		now:      d.Now,
	}
}

// CreateBooking books key.SeatID for key.SessionID on behalf of key.ViewerID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - actor: the caller; must own the booking or be privileged.
//   - key: viewer, session and seat to book.
//
// Returns:
//   - domain.Booking: the created booking.
//   - error: *domain.RejectedError for expected refusals (NotOwner,
//     ViewerNotFound, eligibility reasons, SeatAlreadyBooked).
//   - error: wrapping repository.ErrTransient when storage is unavailable.
func (s *Service) CreateBooking(ctx context.Context, actor domain.Actor, key domain.BookingKey) (b domain.Booking, err error) {
	const op = "service.booking.CreateBooking"

	defer func() { s.metrics.Booking("create", outcome(err)) }()

	if !actor.CanActFor(key.ViewerID) {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonNotOwner))
	}

	if _, err := s.store.GetViewer(ctx, key.ViewerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonViewerNotFound))
		}
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.eligible(ctx, key); err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	err = s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		created, err := s.claim(ctx, tx, key)
		if err != nil {
			return err
		}

		b = created
		display := s.display(ctx, tx, key)

		after(func(ctx context.Context) {
			s.changed(ctx, domain.OpCreated, key, display)
		})

		return nil
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, s.resolve(ctx, key, err))
	}

	return b, nil
}

// ReplaceBooking moves a booking to newSeatID within the same session. The
// old row is removed and the new one inserted in one transaction, so either
// both changes are visible or neither is.
//
// Parameters:
//   - ctx: request-scoped context.
//   - actor: the caller; must own the booking or be privileged.
//   - key: the existing booking.
//   - newSeatID: the seat to move to.
//
// Returns:
//   - domain.Booking: the booking now held.
//   - error: *domain.RejectedError for expected refusals (NotOwner,
//     BookingNotFound, eligibility reasons, SeatAlreadyBooked).
func (s *Service) ReplaceBooking(
	ctx context.Context,
	actor domain.Actor,
	key domain.BookingKey,
	newSeatID int64,
) (b domain.Booking, err error) {
	const op = "service.booking.ReplaceBooking"

	defer func() { s.metrics.Booking("replace", outcome(err)) }()

	if !actor.CanActFor(key.ViewerID) {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonNotOwner))
	}

	current, err := s.store.GetBooking(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonBookingNotFound))
		}
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	if newSeatID == key.SeatID {
		return current, nil
	}

	next := domain.BookingKey{ViewerID: key.ViewerID, SessionID: key.SessionID, SeatID: newSeatID}
	if err := s.eligible(ctx, next); err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	err = s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		if err := tx.DeleteBooking(ctx, key); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Reject(domain.ReasonBookingNotFound)
			}
			return err
		}

		created, err := s.claim(ctx, tx, next)
		if err != nil {
			return err
		}

		b = created
		display := s.display(ctx, tx, next)

		after(func(ctx context.Context) {
			s.changed(ctx, domain.OpUpdated, next, display)
		})

		return nil
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, s.resolve(ctx, next, err))
	}

	return b, nil
}

// DeleteBooking removes a booking. Deleting an absent booking reports
// BookingNotFound and changes nothing.
func (s *Service) DeleteBooking(ctx context.Context, actor domain.Actor, key domain.BookingKey) (err error) {
	const op = "service.booking.DeleteBooking"

	defer func() { s.metrics.Booking("delete", outcome(err)) }()

	if !actor.CanActFor(key.ViewerID) {
		return fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonNotOwner))
	}

	err = s.tx.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		display := s.display(ctx, tx, key)

		if err := tx.DeleteBooking(ctx, key); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Reject(domain.ReasonBookingNotFound)
			}
			return err
		}

		after(func(ctx context.Context) {
			s.changed(ctx, domain.OpDeleted, key, display)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) GetBooking(ctx context.Context, actor domain.Actor, key domain.BookingKey) (domain.Booking, error) {
	const op = "service.booking.GetBooking"

	if !actor.CanActFor(key.ViewerID) {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonNotOwner))
	}

	b, err := s.store.GetBooking(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonBookingNotFound))
		}
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// ListBookings returns bookings matching f. A non-privileged actor only ever
// sees their own bookings.
func (s *Service) ListBookings(ctx context.Context, actor domain.Actor, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "service.booking.ListBookings"

	if !actor.Privileged {
		if actor.ViewerID == 0 || (f.ViewerID != 0 && f.ViewerID != actor.ViewerID) {
			return nil, fmt.Errorf("%s: %w", op, domain.Reject(domain.ReasonNotOwner))
		}
		f.ViewerID = actor.ViewerID
	}

	out, err := s.store.ListBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// eligible runs the availability check and the fast "already booked" lookup.
// Neither is authoritative; insert is.
func (s *Service) eligible(ctx context.Context, key domain.BookingKey) error {
	d, err := s.checker.CheckBookable(ctx, key.SessionID, key.SeatID, s.now())
	if err != nil {
		return err
	}
	if !d.Allowed() {
		return d.Err()
	}

	booked, err := s.store.BookingExists(ctx, key.SessionID, key.SeatID)
	if err != nil {
		return err
	}
	if booked {
		return domain.Reject(domain.ReasonSeatAlreadyBooked)
	}

	return nil
}

// claim repeats the eligibility rules inside the transaction with the session
// share-locked, then inserts. The session can not change hall or disappear
// between the check and the insert.
func (s *Service) claim(ctx context.Context, tx repository.Store, key domain.BookingKey) (domain.Booking, error) {
	session, err := tx.ShareSession(ctx, key.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Booking{}, domain.Reject(domain.ReasonSessionNotFound)
		}
		return domain.Booking{}, err
	}

	d, err := s.checker.CheckSession(ctx, tx, session, key.SeatID, s.now())
	if err != nil {
		return domain.Booking{}, err
	}
	if !d.Allowed() {
		return domain.Booking{}, d.Err()
	}

	b, err := tx.InsertBooking(ctx, key)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, repository.ErrConflict):
		return domain.Booking{}, domain.Reject(domain.ReasonSeatAlreadyBooked)
	default:
		return domain.Booking{}, err
	}
}

// resolve turns a broken reference reported by a rolled back transaction into
// the precise NotFound reason. The lookups go to the store: the failed
// transaction can no longer answer queries.
func (s *Service) resolve(ctx context.Context, key domain.BookingKey, err error) error {
	if !errors.Is(err, repository.ErrReferenced) {
		return err
	}
	return missingReference(ctx, s.store, key)
}

// display resolves the human-readable fields of an event. Missing display
// data never fails the booking.
func (s *Service) display(ctx context.Context, tx repository.Store, key domain.BookingKey) domain.DisplayInfo {
	d, err := tx.BookingDisplay(ctx, key)
	if err != nil {
		s.log.Debug("booking display info unavailable", slog.String("err", err.Error()))
		return domain.DisplayInfo{}
	}
	return d
}

// changed runs after commit: it drops the cached seat map and hands the event
// to the notifier. Nothing here can fail the booking.
func (s *Service) changed(ctx context.Context, op domain.Operation, key domain.BookingKey, display domain.DisplayInfo) {
	if err := s.cache.InvalidateSession(ctx, key.SessionID); err != nil {
		s.log.Warn("seat map cache not invalidated",
			slog.Int64("session_id", key.SessionID),
			slog.String("err", err.Error()),
		)
	}

	if s.notifier == nil {
		return
	}

	ev := domain.BookingEvent{
		Operation:  op,
		ViewerID:   key.ViewerID,
		SessionID:  key.SessionID,
		SeatID:     key.SeatID,
		Display:    display,
		OccurredAt: s.now().UTC(),
	}

	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.log.Warn("booking event not published",
			slog.String("operation", string(op)),
			slog.Int64("session_id", key.SessionID),
			slog.Int64("seat_id", key.SeatID),
			slog.String("err", err.Error()),
		)
	}
}
