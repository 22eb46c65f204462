package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	"github.com/kirinyoku/cinebook/internal/service/availability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sessionStart = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	beforeStart  = sessionStart.Add(-2 * time.Hour)
)

type recorder struct {
	mu     sync.Mutex
	events []domain.BookingEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev domain.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) all() []domain.BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.BookingEvent(nil), r.events...)
}

type fixture struct {
	store   *memory.Store
	svc     *Service
	notes   *recorder
	metrics *metrics.Metrics
	viewers []domain.Viewer
	seats   []domain.Seat
	session domain.Session
}

func setup(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	film, err := s.InsertFilm(ctx, domain.Film{Name: "Mirror"})
	require.NoError(t, err)

	var viewers []domain.Viewer
	for i := 0; i < 16; i++ {
		v, err := s.InsertViewer(ctx, domain.Viewer{Name: fmt.Sprintf("viewer-%d", i)})
		require.NoError(t, err)
		viewers = append(viewers, v)
	}

	hall, err := s.InsertHall(ctx, domain.Hall{Name: "Blue", Rows: 1, SeatsPerRow: 4})
	require.NoError(t, err)
	require.NoError(t, s.InsertSeats(ctx, []domain.Seat{
		{HallID: hall.ID, Row: 1, Number: 1},
		{HallID: hall.ID, Row: 1, Number: 2},
		{HallID: hall.ID, Row: 1, Number: 3},
		{HallID: hall.ID, Row: 1, Number: 4},
	}))
	seats, err := s.ListSeats(ctx, hall.ID)
	require.NoError(t, err)

	session, err := s.InsertSession(ctx, domain.Session{FilmID: film.ID, HallID: hall.ID, StartsAt: sessionStart, Duration: 120})
	require.NoError(t, err)

	fx := &fixture{
		store:   s,
		notes:   &recorder{},
		metrics: metrics.NewWithRegistry(prometheus.NewRegistry()),
		viewers: viewers,
		seats:   seats,
		session: session,
	}
	fx.svc = fx.service(s, now)

	return fx
}

func (fx *fixture) checker() *availability.Service {
	return availability.New(fx.store, nil, availability.Config{
		Policy: availability.Policy{Grace: 20 * time.Minute, ReportSessionEnded: true},
	})
}

func (fx *fixture) service(tx repository.Transactor, now time.Time) *Service {
	return fx.build(fx.store, tx, fx.checker(), now)
}

func (fx *fixture) build(store repository.Store, tx repository.Transactor, c Checker, now time.Time) *Service {
	return New(Deps{
		Store:    store,
		Tx:       tx,
		Checker:  c,
		Notifier: fx.notes,
		Metrics:  fx.metrics,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return now },
	})
}

func (fx *fixture) key(viewer, seat int) domain.BookingKey {
	return domain.BookingKey{
		ViewerID:  fx.viewers[viewer].ID,
		SessionID: fx.session.ID,
		SeatID:    fx.seats[seat].ID,
	}
}

func self(v domain.Viewer) domain.Actor {
	return domain.Actor{ViewerID: v.ID}
}

func assertReason(t *testing.T, err error, want domain.Reason) {
	t.Helper()
	got, ok := domain.ReasonOf(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, want, got)
}

func TestCreateBooking(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	b, err := fx.svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 0))
	require.NoError(t, err)
	assert.Equal(t, fx.key(0, 0), b.BookingKey)

	events := fx.notes.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.OpCreated, events[0].Operation)
	assert.Equal(t, "Mirror", events[0].Display.FilmName)
	assert.Equal(t, "Row 1, Seat 1", events[0].Display.SeatLabel)
	assert.Equal(t, "viewer-0", events[0].Display.ViewerName)
	assert.True(t, events[0].Display.SessionTime.Equal(sessionStart))

	_, err = fx.svc.CreateBooking(ctx, self(fx.viewers[1]), fx.key(1, 0))
	assertReason(t, err, domain.ReasonSeatAlreadyBooked)
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.Len(t, fx.notes.all(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.BookingsTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.BookingsTotal.WithLabelValues("create", "seat_already_booked")))
}

func TestCreateBooking_Rejections(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()
	admin := domain.Actor{Privileged: true}

	tests := []struct {
		name  string
		actor domain.Actor
		key   domain.BookingKey
		want  domain.Reason
	}{
		{"other viewer", self(fx.viewers[1]), fx.key(0, 0), domain.ReasonNotOwner},
		{"anonymous", domain.Actor{}, fx.key(0, 0), domain.ReasonNotOwner},
		{"unknown viewer", admin, domain.BookingKey{ViewerID: 9999, SessionID: fx.session.ID, SeatID: fx.seats[0].ID}, domain.ReasonViewerNotFound},
		{"unknown session", admin, domain.BookingKey{ViewerID: fx.viewers[0].ID, SessionID: 9999, SeatID: fx.seats[0].ID}, domain.ReasonSessionNotFound},
		{"unknown seat", admin, domain.BookingKey{ViewerID: fx.viewers[0].ID, SessionID: fx.session.ID, SeatID: 9999}, domain.ReasonSeatNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.CreateBooking(ctx, tt.actor, tt.key)
			assertReason(t, err, tt.want)
		})
	}

	assert.Empty(t, fx.notes.all())
}

func TestCreateBooking_OwnershipCheckedFirst(t *testing.T) {
	fx := setup(t, beforeStart)

	// the seat does not exist, but the caller learns nothing about it
	_, err := fx.svc.CreateBooking(context.Background(), self(fx.viewers[1]),
		domain.BookingKey{ViewerID: fx.viewers[0].ID, SessionID: fx.session.ID, SeatID: 9999})
	assertReason(t, err, domain.ReasonNotOwner)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateBooking_Window(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want domain.Reason
	}{
		{"within grace", sessionStart.Add(19 * time.Minute), ""},
		{"at cutoff", sessionStart.Add(20 * time.Minute), ""},
		{"past grace", sessionStart.Add(21 * time.Minute), domain.ReasonBookingWindowClosed},
		{"after end", sessionStart.Add(3 * time.Hour), domain.ReasonSessionEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setup(t, tt.now)

			_, err := fx.svc.CreateBooking(context.Background(), self(fx.viewers[0]), fx.key(0, 0))
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assertReason(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrPolicyViolation)
		})
	}
}

func TestCreateBooking_ConcurrentSameSeat(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	start := make(chan struct{})
	for i := range fx.viewers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			_, err := fx.svc.CreateBooking(ctx, self(fx.viewers[i]), fx.key(i, 2))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if r, ok := domain.ReasonOf(err); ok && r == domain.ReasonSeatAlreadyBooked {
				conflicts++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, len(fx.viewers)-1, conflicts)

	bookings, err := fx.store.ListBookings(ctx, domain.BookingFilter{SessionID: fx.session.ID, SeatID: fx.seats[2].ID})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Len(t, fx.notes.all(), 1)
}

// movingChecker moves the session to another hall once the first
// eligibility check has passed, before the booking transaction starts.
type movingChecker struct {
	*availability.Service
	once sync.Once
	move func()
}

func (m *movingChecker) CheckBookable(ctx context.Context, sessionID, seatID int64, now time.Time) (domain.Decision, error) {
	d, err := m.Service.CheckBookable(ctx, sessionID, seatID, now)
	m.once.Do(m.move)
	return d, err
}

func TestCreateBooking_SessionMovedAfterCheck(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	red, err := fx.store.InsertHall(ctx, domain.Hall{Name: "Red", Rows: 1, SeatsPerRow: 1})
	require.NoError(t, err)
	require.NoError(t, fx.store.InsertSeats(ctx, []domain.Seat{{HallID: red.ID, Row: 1, Number: 1}}))

	moved := fx.session
	moved.HallID = red.ID
	checker := &movingChecker{
		Service: fx.checker(),
		move: func() {
			require.NoError(t, fx.store.UpdateSession(ctx, moved))
		},
	}

	svc := fx.build(fx.store, fx.store, checker, beforeStart)
	_, err = svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 0))
	assertReason(t, err, domain.ReasonSeatNotInHall)

	taken, err := fx.store.BookingExists(ctx, fx.session.ID, fx.seats[0].ID)
	require.NoError(t, err)
	assert.False(t, taken)
	assert.Empty(t, fx.notes.all())
}

var errTxAborted = errors.New("current transaction is aborted")

// abortedTx reports a broken reference on insert and then, like a postgres
// transaction after a failed statement, refuses every further query.
type abortedTx struct {
	repository.Store
	aborted *bool
}

func (a abortedTx) InsertBooking(context.Context, domain.BookingKey) (domain.Booking, error) {
	*a.aborted = true
	return domain.Booking{}, fmt.Errorf("insert booking: %w", repository.ErrReferenced)
}

func (a abortedTx) GetViewer(ctx context.Context, id int64) (domain.Viewer, error) {
	if *a.aborted {
		return domain.Viewer{}, errTxAborted
	}
	return a.Store.GetViewer(ctx, id)
}

func (a abortedTx) GetSeat(ctx context.Context, id int64) (domain.Seat, error) {
	if *a.aborted {
		return domain.Seat{}, errTxAborted
	}
	return a.Store.GetSeat(ctx, id)
}

type abortingTx struct {
	inner *memory.Store
}

func (f abortingTx) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error,
) error {
	return f.inner.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		return fn(ctx, abortedTx{Store: tx, aborted: new(bool)}, after)
	})
}

// seatGone hides one seat, as if a concurrent hall resize removed it.
type seatGone struct {
	repository.Store
	seatID int64
}

func (s seatGone) GetSeat(ctx context.Context, id int64) (domain.Seat, error) {
	if id == s.seatID {
		return domain.Seat{}, fmt.Errorf("get seat: %w", repository.ErrNotFound)
	}
	return s.Store.GetSeat(ctx, id)
}

func TestCreateBooking_BrokenReferenceResolvedAfterRollback(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	store := seatGone{Store: fx.store, seatID: fx.seats[1].ID}
	svc := fx.build(store, abortingTx{inner: fx.store}, fx.checker(), beforeStart)

	_, err := svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 1))
	assertReason(t, err, domain.ReasonSeatNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, fx.notes.all())
}

func TestCreateBooking_NotificationFailureDoesNotFail(t *testing.T) {
	fx := setup(t, beforeStart)
	fx.notes.err = errors.New("broker unreachable")

	_, err := fx.svc.CreateBooking(context.Background(), self(fx.viewers[0]), fx.key(0, 1))
	require.NoError(t, err)

	ok, err := fx.store.BookingExists(context.Background(), fx.session.ID, fx.seats[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReplaceBooking(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()
	viewer := self(fx.viewers[0])

	_, err := fx.svc.CreateBooking(ctx, viewer, fx.key(0, 0))
	require.NoError(t, err)
	_, err = fx.svc.CreateBooking(ctx, self(fx.viewers[1]), fx.key(1, 1))
	require.NoError(t, err)

	_, err = fx.svc.ReplaceBooking(ctx, viewer, fx.key(0, 0), fx.seats[1].ID)
	assertReason(t, err, domain.ReasonSeatAlreadyBooked)

	b, err := fx.svc.ReplaceBooking(ctx, viewer, fx.key(0, 0), fx.seats[3].ID)
	require.NoError(t, err)
	assert.Equal(t, fx.key(0, 3), b.BookingKey)

	_, err = fx.store.GetBooking(ctx, fx.key(0, 0))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	events := fx.notes.all()
	require.Len(t, events, 3)
	assert.Equal(t, domain.OpUpdated, events[2].Operation)
	assert.Equal(t, fx.seats[3].ID, events[2].SeatID)
	assert.Equal(t, "Row 1, Seat 4", events[2].Display.SeatLabel)
}

func TestReplaceBooking_SameSeatIsNoop(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	created, err := fx.svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 0))
	require.NoError(t, err)

	b, err := fx.svc.ReplaceBooking(ctx, self(fx.viewers[0]), fx.key(0, 0), fx.seats[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created, b)
	assert.Len(t, fx.notes.all(), 1)
}

func TestReplaceBooking_Rejections(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	_, err := fx.svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 0))
	require.NoError(t, err)

	_, err = fx.svc.ReplaceBooking(ctx, self(fx.viewers[1]), fx.key(0, 0), fx.seats[1].ID)
	assertReason(t, err, domain.ReasonNotOwner)

	_, err = fx.svc.ReplaceBooking(ctx, self(fx.viewers[0]), fx.key(0, 2), fx.seats[1].ID)
	assertReason(t, err, domain.ReasonBookingNotFound)

	_, err = fx.svc.ReplaceBooking(ctx, self(fx.viewers[0]), fx.key(0, 0), 9999)
	assertReason(t, err, domain.ReasonSeatNotFound)

	_, err = fx.store.GetBooking(ctx, fx.key(0, 0))
	assert.NoError(t, err)
}

type failingInsert struct {
	repository.Store
}

func (failingInsert) InsertBooking(context.Context, domain.BookingKey) (domain.Booking, error) {
	return domain.Booking{}, fmt.Errorf("insert: %w", repository.ErrTransient)
}

type failingTx struct {
	inner *memory.Store
}

func (f failingTx) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error,
) error {
	return f.inner.Do(ctx, func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error {
		return fn(ctx, failingInsert{Store: tx}, after)
	})
}

func TestReplaceBooking_FailureLeavesOriginal(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	_, err := fx.svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 0))
	require.NoError(t, err)

	broken := fx.service(failingTx{inner: fx.store}, beforeStart)
	_, err = broken.ReplaceBooking(ctx, self(fx.viewers[0]), fx.key(0, 0), fx.seats[1].ID)
	require.Error(t, err)
	assert.True(t, repository.IsTransient(err))

	_, err = fx.store.GetBooking(ctx, fx.key(0, 0))
	assert.NoError(t, err, "original booking must survive a failed replace")

	taken, err := fx.store.BookingExists(ctx, fx.session.ID, fx.seats[1].ID)
	require.NoError(t, err)
	assert.False(t, taken)

	assert.Len(t, fx.notes.all(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.BookingsTotal.WithLabelValues("replace", "transient")))
}

func TestDeleteBooking(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()
	viewer := self(fx.viewers[0])

	_, err := fx.svc.CreateBooking(ctx, viewer, fx.key(0, 0))
	require.NoError(t, err)

	assertReason(t, fx.svc.DeleteBooking(ctx, self(fx.viewers[1]), fx.key(0, 0)), domain.ReasonNotOwner)

	require.NoError(t, fx.svc.DeleteBooking(ctx, viewer, fx.key(0, 0)))

	events := fx.notes.all()
	require.Len(t, events, 2)
	assert.Equal(t, domain.OpDeleted, events[1].Operation)
	assert.Equal(t, "viewer-0", events[1].Display.ViewerName)

	err = fx.svc.DeleteBooking(ctx, viewer, fx.key(0, 0))
	assertReason(t, err, domain.ReasonBookingNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, fx.notes.all(), 2)

	// the seat is free again
	_, err = fx.svc.CreateBooking(ctx, self(fx.viewers[1]), fx.key(1, 0))
	assert.NoError(t, err)
}

func TestGetAndListBookings(t *testing.T) {
	fx := setup(t, beforeStart)
	ctx := context.Background()

	_, err := fx.svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 0))
	require.NoError(t, err)
	_, err = fx.svc.CreateBooking(ctx, self(fx.viewers[0]), fx.key(0, 1))
	require.NoError(t, err)
	_, err = fx.svc.CreateBooking(ctx, self(fx.viewers[1]), fx.key(1, 2))
	require.NoError(t, err)

	b, err := fx.svc.GetBooking(ctx, self(fx.viewers[0]), fx.key(0, 1))
	require.NoError(t, err)
	assert.Equal(t, fx.key(0, 1), b.BookingKey)

	_, err = fx.svc.GetBooking(ctx, self(fx.viewers[1]), fx.key(0, 1))
	assertReason(t, err, domain.ReasonNotOwner)

	own, err := fx.svc.ListBookings(ctx, self(fx.viewers[0]), domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 2)
	for _, b := range own {
		assert.Equal(t, fx.viewers[0].ID, b.ViewerID)
	}

	_, err = fx.svc.ListBookings(ctx, self(fx.viewers[0]), domain.BookingFilter{ViewerID: fx.viewers[1].ID})
	assertReason(t, err, domain.ReasonNotOwner)

	_, err = fx.svc.ListBookings(ctx, domain.Actor{}, domain.BookingFilter{})
	assertReason(t, err, domain.ReasonNotOwner)

	all, err := fx.svc.ListBookings(ctx, domain.Actor{Privileged: true}, domain.BookingFilter{SessionID: fx.session.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type transientStore struct {
	repository.Store
}

func (transientStore) GetViewer(context.Context, int64) (domain.Viewer, error) {
	return domain.Viewer{}, fmt.Errorf("get viewer: %w", repository.ErrTransient)
}

func TestCreateBooking_TransientFailurePropagates(t *testing.T) {
	fx := setup(t, beforeStart)

	svc := New(Deps{
		Store:   transientStore{Store: fx.store},
		Tx:      fx.store,
		Checker: availability.New(fx.store, nil, availability.Config{}),
		Now:     func() time.Time { return beforeStart },
	})

	_, err := svc.CreateBooking(context.Background(), self(fx.viewers[0]), fx.key(0, 0))
	require.Error(t, err)
	assert.True(t, repository.IsTransient(err))
	_, rejected := domain.ReasonOf(err)
	assert.False(t, rejected)
}
